// Command tilegrow grows one tile tree locally and prints it, or issues operator tokens
// for the HTTP service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/beka-birhanu/vinom-tiles/api/identity"
	"github.com/beka-birhanu/vinom-tiles/config"
	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/growth"
	logger "github.com/beka-birhanu/vinom-tiles/infrastruture/log"
	"github.com/beka-birhanu/vinom-tiles/infrastruture/token"
	"github.com/beka-birhanu/vinom-tiles/pacing"
	"github.com/beka-birhanu/vinom-tiles/render"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const (
	formatASCII = "ascii"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "token":
			tokenCmd(os.Args[2:])
			return
		case "grow":
			growCmd(os.Args[2:])
			return
		}
	}
	growCmd(os.Args[1:])
}

func growCmd(args []string) {
	fs := flag.NewFlagSet("grow", flag.ExitOnError)
	width := fs.Int("width", 10, "grid width")
	height := fs.Int("height", 10, "grid height")
	rootX := fs.Int("x", 0, "root column")
	rootY := fs.Int("y", 0, "root row")
	seed := fs.Int64("seed", 0, "shuffle seed (0 picks one from the clock)")
	pace := fs.Duration("pacing", 0, "delay before each growth attempt")
	limited := fs.Bool("limited", false, "share one rate limiter between all attempts instead of delaying each")
	format := fs.String("format", formatASCII, "output format: ascii, json or yaml")
	tuningFile := fs.String("tuning", "", "YAML tuning file with grid presets")
	preset := fs.String("preset", "", "preset name from the tuning file")
	quiet := fs.Bool("q", false, "do not log the summary")
	_ = fs.Parse(args)

	appLogger, _ := logger.New("TILEGROW", config.ColorGreen, os.Stderr)

	if *preset != "" {
		if *tuningFile == "" {
			fmt.Fprintln(os.Stderr, "-preset needs -tuning")
			os.Exit(2)
		}
		t, err := config.LoadTuning(*tuningFile)
		if err != nil {
			appLogger.Error(fmt.Sprintf("Loading tuning file: %v", err))
			os.Exit(1)
		}
		p, err := t.Preset(*preset)
		if err != nil {
			appLogger.Error(err.Error())
			os.Exit(2)
		}
		*width, *height, *seed = p.Width, p.Height, p.Seed
		*pace = time.Duration(p.PacingMs) * time.Millisecond
	}

	store, err := grid.New(*width, *height)
	if err != nil {
		appLogger.Error(err.Error())
		os.Exit(2)
	}

	pacer := pacing.Fixed(*pace)
	if *limited && *pace > 0 {
		pacer = pacing.Limited(*pace, 1)
	}

	grower, err := growth.New(growth.Config{
		Store:    store,
		Pacer:    pacer,
		Permuter: growth.RandomPermuter(*seed),
	})
	if err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	layout, err := grower.Run(ctx, *rootX, *rootY)
	if err != nil && ctx.Err() == nil {
		appLogger.Error(fmt.Sprintf("Growing from (%d,%d): %v", *rootX, *rootY, err))
		os.Exit(1)
	}
	if ctx.Err() != nil {
		appLogger.Warning("Interrupted, printing the partial layout")
	}

	if err := writeLayout(os.Stdout, layout, *format); err != nil {
		appLogger.Error(err.Error())
		os.Exit(2)
	}
	if !*quiet {
		appLogger.Info(summary(layout, time.Since(started)))
	}
}

func tokenCmd(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to $JWT_SECRET)")
	issuer := fs.String("issuer", envOr("JWT_ISSUER", "vinom-tiles"), "token issuer (defaults to $JWT_ISSUER)")
	subject := fs.String("sub", "operator", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(args)

	if strings.TrimSpace(*secret) == "" {
		fmt.Fprintln(os.Stderr, "missing -secret")
		os.Exit(2)
	}

	tok, err := token.NewJwtService(*secret, *issuer).Generate(identity.OperatorClaims(*subject), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

// writeLayout prints layout in format.
func writeLayout(w io.Writer, layout growth.Layout, format string) error {
	switch format {
	case formatASCII:
		_, err := io.WriteString(w, render.ASCII(layout))
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(layout)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(layout); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func summary(layout growth.Layout, elapsed time.Duration) string {
	cells := layout.Width * layout.Height
	return fmt.Sprintf("%s of %s cells claimed in %s", humanize.Comma(int64(len(layout.Tiles))),
		humanize.Comma(int64(cells)), elapsed.Round(time.Millisecond))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
