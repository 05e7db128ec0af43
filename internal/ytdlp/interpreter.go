package ytdlp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SignalKind classifies an interpreted output line.
type SignalKind int

const (
	SignalNone SignalKind = iota
	SignalProgress
	SignalSidecar
	SignalOutput
)

func (k SignalKind) String() string {
	switch k {
	case SignalProgress:
		return "progress"
	case SignalSidecar:
		return "sidecar"
	case SignalOutput:
		return "output"
	default:
		return "none"
	}
}

// Signal is the meaning extracted from one line of tool output. Err is set
// when a line matched a pattern but its payload could not be parsed.
type Signal struct {
	Kind    SignalKind
	Percent float64
	Path    string
	Err     error
}

// Interpreter turns raw output lines into signals. Implementations must be
// safe for concurrent use.
type Interpreter interface {
	Interpret(line string) Signal
}

var (
	progressPattern = regexp.MustCompile(`^\[download\]\s+(\S+?)%`)
	sidecarPattern  = regexp.MustCompile(`Writing video metadata as JSON to:\s*(.+)$`)
	outputPattern   = regexp.MustCompile(`\[EmbedThumbnail\] ffmpeg: Adding thumbnail to "(.+)"$`)
)

type defaultInterpreter struct{}

// DefaultInterpreter understands yt-dlp's --newline console output.
func DefaultInterpreter() Interpreter {
	return defaultInterpreter{}
}

func (defaultInterpreter) Interpret(line string) Signal {
	line = strings.TrimSpace(line)
	if line == "" {
		return Signal{}
	}
	if m := progressPattern.FindStringSubmatch(line); m != nil {
		percent, err := strconv.ParseFloat(m[1], 64)
		if err != nil || percent < 0 {
			return Signal{Kind: SignalProgress, Percent: -1, Err: fmt.Errorf("parse progress %q: invalid percentage", m[1])}
		}
		if percent > 100 {
			percent = 100
		}
		return Signal{Kind: SignalProgress, Percent: percent}
	}
	if m := sidecarPattern.FindStringSubmatch(line); m != nil {
		return Signal{Kind: SignalSidecar, Path: strings.TrimSpace(m[1])}
	}
	if m := outputPattern.FindStringSubmatch(line); m != nil {
		return Signal{Kind: SignalOutput, Path: m[1]}
	}
	return Signal{}
}
