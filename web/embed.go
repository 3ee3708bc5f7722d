package web

import "embed"

// Static embeds the counter front-end assets.
//
//go:embed static/*
var Static embed.FS
