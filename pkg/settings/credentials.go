package settings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/newtron-network/merakiops/pkg/util"
)

// Environment variables holding the API key, checked in order.
var APIKeyEnv = []string{"MERAKI_API_KEY", "meraki_api_key"}

// Credentials describes where to look for the API key.
type Credentials struct {
	// Flag is the --api-key value.
	Flag string
	// DotEnv is a .env file read without modifying the process
	// environment. Empty skips it.
	DotEnv string
	// Settings supplies api_key from the settings file.
	Settings *Settings
	// Prompt asks on the terminal when nothing else yields a key.
	Prompt bool

	In  *os.File
	Out io.Writer

	getenv func(string) string
}

// APIKey returns the first key found (flag, environment, .env, settings,
// then an interactive prompt) and the name of the source it came from. A
// missing key is a configuration error.
func (c Credentials) APIKey() (key, source string, err error) {
	if k := strings.TrimSpace(c.Flag); k != "" {
		return k, "--api-key", nil
	}

	getenv := c.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range APIKeyEnv {
		if k := strings.TrimSpace(getenv(name)); k != "" {
			return k, name, nil
		}
	}

	if c.DotEnv != "" {
		if env, err := godotenv.Read(c.DotEnv); err == nil {
			for _, name := range APIKeyEnv {
				if k := strings.TrimSpace(env[name]); k != "" {
					return k, c.DotEnv, nil
				}
			}
		} else if !os.IsNotExist(err) {
			util.Warnf("reading %s: %v", c.DotEnv, err)
		}
	}

	if c.Settings != nil && c.Settings.APIKey != "" {
		return c.Settings.APIKey, "settings", nil
	}

	if c.Prompt {
		if k, err := c.prompt(); err != nil {
			return "", "", err
		} else if k != "" {
			return k, "prompt", nil
		}
	}

	return "", "", util.NewConfigError("api key",
		"set MERAKI_API_KEY in your environment, pass --api-key, or run 'merakiops settings set api_key <key>'")
}

// prompt reads the key without echo when stdin is a terminal.
func (c Credentials) prompt() (string, error) {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	out := c.Out
	if out == nil {
		out = os.Stderr
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(out, "Dashboard API key: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		// Some terminals refuse raw mode; fall back to a visible read.
		line, rerr := bufio.NewReader(in).ReadString('\n')
		if rerr != nil && line == "" {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
	return strings.TrimSpace(string(raw)), nil
}
