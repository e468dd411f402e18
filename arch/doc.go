package arch

//go:generate mockgen -write_package_comment=false -package=mock_arch -destination=mock_arch/mock_arch.go github.com/YosysHQ/nextpnr-sub004/arch Arch
