package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/evo-sim/simd/client"
)

const checkTimeout = 10 * time.Second

type scenario struct {
	Name string
	Run  func() error
}

func check(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		return err
	}

	okf, failf, addf := checkColors(cfg, cc)

	run := scenarios(cfg)
	if len(args) > 0 {
		run = filterScenarios(run, args)
		if len(run) == 0 {
			return fmt.Errorf("%w: no scenario matches %v", cli.ErrUsage, args)
		}
	}

	n := cfg.N
	if n < 1 {
		n = 1
	}

	failed := 0
	for _, sc := range run {
		var err error
		for i := 0; i < n; i++ {
			if err = sc.Run(); err != nil {
				break
			}
		}
		if err != nil {
			failed++
			fmt.Fprintf(cc.Out, "%s %s: %v\n", colorize(failf, "FAIL"), sc.Name, err)
			var mm *mismatchError
			if errors.As(err, &mm) {
				fmt.Fprint(cc.Out, renderDiff(mm.want, mm.got, addf, failf))
			}
			continue
		}
		fmt.Fprintf(cc.Out, "%s   %s\n", colorize(okf, "ok"), sc.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(run))
	}
	return nil
}

func scenarios(cfg *CheckConfig) []scenario {
	all := []scenario{
		{"hello", func() error { return checkEcho(cfg.Addr, []byte("hello")) }},
		{"silent", func() error { return checkSilent(cfg.Addr) }},
		{"chunks", func() error { return checkChunks(cfg.Addr) }},
		{"bulk", func() error { return checkBulk(cfg.Addr, cfg.Size) }},
	}
	if cfg.Payload != "" {
		all = append(all, scenario{"payload", func() error {
			return checkEcho(cfg.Addr, []byte(cfg.Payload))
		}})
	}
	return all
}

func filterScenarios(all []scenario, names []string) []scenario {
	var res []scenario
	for _, sc := range all {
		for _, name := range names {
			if strings.HasPrefix(sc.Name, name) {
				res = append(res, sc)
				break
			}
		}
	}
	return res
}

// checkEcho dials the server, echoes payload once, and compares.
func checkEcho(addr string, payload []byte) error {
	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(checkTimeout))

	got, err := c.Echo(payload)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, payload) {
		return &mismatchError{want: string(payload), got: string(got)}
	}
	return nil
}

// checkSilent connects and leaves without sending a byte, then verifies
// the server still answers.
func checkSilent(addr string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	if err := c.Close(); err != nil {
		return err
	}
	return checkEcho(addr, []byte("ping"))
}

// checkChunks sends consecutive payloads on one connection; each must come
// back before the next is sent.
func checkChunks(addr string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(checkTimeout))

	for _, payload := range []string{"foo", "bar"} {
		got, err := c.Echo([]byte(payload))
		if err != nil {
			return err
		}
		if string(got) != payload {
			return &mismatchError{want: payload, got: string(got)}
		}
	}
	return nil
}

// checkBulk echoes a payload larger than the server's read chunk. The
// server echoes it in chunks; the client reassembles and compares.
func checkBulk(addr string, size int) error {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = alphabet[i%len(alphabet)]
	}
	return checkEcho(addr, payload)
}

type mismatchError struct {
	want, got string
}

func (e *mismatchError) Error() string {
	return fmt.Sprintf("echo mismatch: sent %d bytes, got %d back", len(e.want), len(e.got))
}

// renderDiff renders a character diff of the expected and actual echo,
// eliding long stretches of matching bytes. Missing bytes show as [-x-],
// unexpected bytes as {+x+}.
func renderDiff(want, got string, addf, delf func(string, ...any) string) string {
	diffs := diffpatch.New().DiffMain(want, got, false)
	var b strings.Builder
	b.WriteString("     ")
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffEqual:
			b.WriteString(elide(d.Text))
		case diffpatch.DiffInsert:
			b.WriteString(colorize(addf, "{+"+d.Text+"+}"))
		case diffpatch.DiffDelete:
			b.WriteString(colorize(delf, "[-"+d.Text+"-]"))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func elide(s string) string {
	const keep = 24
	if len(s) <= 2*keep+5 {
		return s
	}
	return s[:keep] + " ... " + s[len(s)-keep:]
}

func checkColors(cfg *CheckConfig, cc *cli.Context) (okf, failf, addf func(string, ...any) string) {
	okf, failf, addf = colorNone, colorNone, colorNone
	if !cfg.C {
		f, isFile := cc.Out.(*os.File)
		if !isFile || !isatty.IsTerminal(f.Fd()) {
			return
		}
	}
	return color.GreenString, color.RedString, color.YellowString
}

func colorNone(format string, a ...any) string { return fmt.Sprintf(format, a...) }

// colorize applies a color function to a literal string, escaping any
// format verbs it may contain.
func colorize(f func(string, ...any) string, s string) string {
	return f(strings.Replace(s, "%", "%%", -1))
}
