// Package config loads the server's TOML configuration, grounded on the
// KWARC-kalah-game Conf/GameConf/defaultConfig pattern: a struct tree with
// toml tags, a package-level default, and a best-effort file overlay.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type GameConf struct {
	MaxPlayers       uint `toml:"max_players"`
	PickingTimeoutMS uint `toml:"picking_timeout_ms"`
	TurnTimeoutMS    uint `toml:"turn_timeout_ms"`
	TargetScore      uint `toml:"target_score"`
}

type WebConf struct {
	Addr string `toml:"addr"`
}

type Conf struct {
	Debug bool     `toml:"debug"`
	Game  GameConf `toml:"game"`
	Web   WebConf  `toml:"web"`

	file string
}

var defaultConfig = Conf{
	Debug: false,
	Game: GameConf{
		MaxPlayers:       4,
		PickingTimeoutMS: 30_000,
		TurnTimeoutMS:    60_000,
		TargetScore:      100,
	},
	Web: WebConf{
		Addr: ":18080",
	},
}

// Load starts from defaultConfig, overlays name if it exists, then lets
// SERVER_ADDR override the listen address — mirroring the teacher's own
// main.go env-var fallback for addr on top of a file-based base config.
func Load(name string) (*Conf, error) {
	conf := defaultConfig
	if name != "" {
		if _, err := os.Stat(name); err == nil {
			if err := readConf(name, &conf); err != nil {
				return nil, err
			}
		}
	}
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		conf.Web.Addr = addr
	}
	return &conf, nil
}

func readConf(name string, conf *Conf) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = toml.NewDecoder(file).Decode(conf)
	conf.file = name
	return err
}

func (c GameConf) PickingTimeout() time.Duration {
	return time.Duration(c.PickingTimeoutMS) * time.Millisecond
}

func (c GameConf) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutMS) * time.Millisecond
}
