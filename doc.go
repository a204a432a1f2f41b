// Package dashboard provides a web dashboard for a go-sarah bot's settings.
//
// The dashboard renders a settings.Tree as HTML forms, writes submitted values
// back to it, and lets only the bot's owner in, using Discord's OAuth2 login.
// Wrap a sarah.Bot with NewBot so the dashboard's HTTP server starts and stops
// with the bot.
//
// See _example/main.go for a runnable bot.
package dashboard
