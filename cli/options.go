package cli

import (
	"github.com/viant/restauth"
)

type Options struct {
	File    string           `short:"c" long:"config-file" description:"options file (yaml or json)"`
	Verbose bool             `short:"v" long:"verbose" description:"debug logging"`
	Client  restauth.Options `group:"client"`

	Login  LoginCommand `command:"login" description:"log in and store the token pair"`
	Logout struct{}     `command:"logout" description:"forget stored credentials"`
	Status struct{}     `command:"status" description:"show the stored session"`
	Call   CallCommand  `command:"call" description:"call an API path"`
	Config struct{}     `command:"config" description:"print effective options as yaml"`
}

type LoginCommand struct {
	Username string `short:"U" long:"username" description:"user name" required:"true"`
	Password string `short:"P" long:"password" description:"password" env:"RESTAUTH_PASSWORD"`
	Remember bool   `short:"r" long:"remember" description:"keep credentials in durable storage"`
}

type CallCommand struct {
	Method string   `short:"X" long:"method" description:"HTTP method" default:"GET"`
	Data   string   `short:"d" long:"data" description:"request body"`
	Header []string `short:"H" long:"header" description:"request header, name:value"`
	Public bool     `long:"public" description:"send without credentials"`
	Args   struct {
		Path string `positional-arg-name:"path" required:"true"`
	} `positional-args:"yes"`
}

// merge overlays values set on the command line onto loaded options.
func merge(loaded *restauth.Options, cmd *restauth.Options) {
	if cmd.BaseURL != "" {
		loaded.BaseURL = cmd.BaseURL
	}
	if cmd.LoginPath != "" {
		loaded.LoginPath = cmd.LoginPath
	}
	if cmd.RefreshPath != "" {
		loaded.RefreshPath = cmd.RefreshPath
	}
	if cmd.Rotate {
		loaded.Rotate = true
	}
	if cmd.Timeout != 0 {
		loaded.Timeout = cmd.Timeout
	}
	if cmd.RefreshTimeout != 0 {
		loaded.RefreshTimeout = cmd.RefreshTimeout
	}
	if cmd.CookieJarURL != "" {
		loaded.CookieJarURL = cmd.CookieJarURL
	}
	if cmd.Storage.Type != "" {
		loaded.Storage.Type = cmd.Storage.Type
	}
	if cmd.Storage.URL != "" {
		loaded.Storage.URL = cmd.Storage.URL
	}
	if cmd.Storage.Key != "" {
		loaded.Storage.Key = cmd.Storage.Key
	}
	if cmd.Storage.TTL != 0 {
		loaded.Storage.TTL = cmd.Storage.TTL
	}
}
