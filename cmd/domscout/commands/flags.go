package commands

import (
	"fmt"

	"github.com/spf13/pflag"
)

func mustBind(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("no flag for config key %q", key))
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}
