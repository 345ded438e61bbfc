package input_test

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/bolt/input"
	"github.com/zero-day-ai/bolt/pluginerr"
)

func Example() {
	params := map[string]any{
		"url":     "https://example.com",
		"timeout": 1500.0,
		"retries": "2",
		"headers": map[string]any{"Accept": "application/json"},
	}

	url, _ := input.RequireString(params, "url")
	fmt.Println(url)
	fmt.Println(input.GetDurationMs(params, "timeout", 30*time.Second))
	fmt.Println(input.GetInt(params, "retries", 3))
	fmt.Println(input.GetStringMap(params, "headers")["Accept"])

	_, err := input.RequireString(params, "method")
	fmt.Println(pluginerr.CodeOf(err))

	// Output:
	// https://example.com
	// 1.5s
	// 2
	// application/json
	// MISSING_PARAM
}
