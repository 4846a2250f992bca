package main

import (
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Main *cli.Command
}

type ServeConfig struct {
	*MainConfig
	Serve *cli.Command

	ConfigFile  string `cli:"name=config desc='configuration file (yaml)'"`
	Addr        string `cli:"name=addr desc='TCP listen address (default 127.0.0.1:12345)'"`
	BufferSize  int    `cli:"name=buf desc='read chunk size in bytes (default 1024)'"`
	MaxSessions int    `cli:"name=sessions desc='sessions served at once, 1=sequential, 0=unbounded'"`
}

// sessionsSet reports whether -sessions was given on the command line.
// The zero value means unbounded, so absence cannot be read off the field.
func (cfg *ServeConfig) sessionsSet() bool {
	for _, opt := range cfg.Serve.Opts {
		if opt.Name != "sessions" {
			continue
		}
		return opt.Value != nil
	}
	return false
}

type CheckConfig struct {
	*MainConfig
	Check *cli.Command

	Addr    string `cli:"name=addr desc='server address' default=127.0.0.1:12345"`
	Size    int    `cli:"name=size desc='payload size for the bulk scenario (default 4096)'"`
	N       int    `cli:"name=n desc='times to run each scenario (default 1)'"`
	Payload string `cli:"name=payload desc='extra payload to echo as its own scenario'"`
	C       bool   `cli:"name=color desc='force colored output'"`
}
