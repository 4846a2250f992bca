package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Echo   bool
	Config bool
}

var d *debug

func init() {
	d = &debug{}
	d.Echo = boolEnv("SIMD_DEBUG_ECHO")
	d.Config = boolEnv("SIMD_DEBUG_CONFIG")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Echo gates byte-level dumps of echoed chunks.
func Echo() bool {
	return d.Echo
}

// Config gates dumping the effective server configuration at startup.
func Config() bool {
	return d.Config
}

func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", v)
		return
	}
	os.Stderr.Write(d)
}
