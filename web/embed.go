package web

import "embed"

// TemplatesFS embeds the public ledger page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet of the public page.
//
//go:embed static/*
var StaticFS embed.FS
