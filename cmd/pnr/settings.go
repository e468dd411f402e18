package main

import "github.com/YosysHQ/nextpnr-sub004/pnrctx"

// settingString/settingFloat/settingInt/settingBool read a settings-map
// key if a loaded project set one, falling back to def otherwise.
func settingString(ctx *pnrctx.Context, key, def string) string {
	v, ok := ctx.Settings[key]
	if !ok {
		return def
	}
	return v.String()
}

func settingFloat(ctx *pnrctx.Context, key string, def float64) float64 {
	v, ok := ctx.Settings[key]
	if !ok {
		return def
	}
	return v.Float()
}

func settingInt(ctx *pnrctx.Context, key string, def int) int {
	v, ok := ctx.Settings[key]
	if !ok {
		return def
	}
	return int(v.Int())
}

func settingBool(ctx *pnrctx.Context, key string, def bool) bool {
	v, ok := ctx.Settings[key]
	if !ok {
		return def
	}
	return v.Bool()
}
