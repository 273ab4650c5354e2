package am

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/teranos/tripline/errors"
)

// UndecodedKeys returns the keys present in a TOML config file that do not map
// to any Config field. Viper silently ignores them, so typos like
// "clean.max_duration" would otherwise go unnoticed.
func UndecodedKeys(path string) ([]string, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	var keys []string
	for _, k := range md.Undecoded() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys, nil
}
