// Package input provides helpers for reading action parameters.
//
// Parameters arrive as map[string]any, usually decoded from JSON, so numbers
// may be float64, int or numeric strings. The Get* functions coerce what they
// can and fall back to a default. The Require* functions return a
// *pluginerr.Error instead, which the plugin runtime turns into a failed
// Result with the matching code:
//
//   - MISSING_PARAM when the key is absent or nil
//   - INVALID_PARAM when the value has the wrong type or is empty
//
// # Usage
//
//	func query(ctx context.Context, params types.Params) (any, error) {
//	    sql, err := input.RequireString(params, "sql")
//	    if err != nil {
//	        return nil, err
//	    }
//	    limit := input.GetInt(params, "limit", 100)
//	    timeout := input.GetDurationMs(params, "timeout", 30*time.Second)
//	    ...
//	}
package input
