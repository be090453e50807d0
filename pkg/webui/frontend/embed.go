package frontend

import "embed"

// Dist embeds the dashboard assets served behind the LINE Login flow.
//
//go:embed dist/*
var Dist embed.FS
