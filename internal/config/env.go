package config

import "strings"

// envKey maps PREFIX__LOG__JSON to log__json. The provider then splits on
// its "__" delimiter, giving the nested key log.json.
func envKey(prefix string) func(string) string {
	return func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, prefix))
	}
}
