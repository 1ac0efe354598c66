package main

import (
	"fmt"
	"strings"
)

type rootArgs struct {
	overrides []string
}

// parseRootArgs 只消费开头的 -c key=value，遇到其他参数即停止，剩余参数交给子命令。
func parseRootArgs(args []string) (rootArgs, []string, error) {
	var root rootArgs
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "-c" || arg == "--c":
			if i+1 >= len(args) {
				return rootArgs{}, nil, fmt.Errorf("flag needs an argument: %s", arg)
			}
			root.overrides = append(root.overrides, args[i+1])
			i += 2
		case strings.HasPrefix(arg, "-c=") || strings.HasPrefix(arg, "--c="):
			_, value, _ := strings.Cut(arg, "=")
			root.overrides = append(root.overrides, value)
			i++
		default:
			return root, args[i:], nil
		}
	}
	return root, args[i:], nil
}

func prependOverrides(root []string, overrides []string) []string {
	merged := append([]string{}, root...)
	return append(merged, overrides...)
}
