package session

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// ReplayStats summarizes a replayed session file.
type ReplayStats struct {
	Lines    int
	Events   int
	Outcomes map[Outcome]int
}

// Replay feeds a JSONL session recording through d, one envelope per line,
// in order. Blank lines are skipped. The first undecodable line aborts the
// replay with its line number.
func Replay(ctx context.Context, r io.Reader, d *Dispatcher) (ReplayStats, error) {
	stats := ReplayStats{Outcomes: make(map[Outcome]int)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxEnvelopeBytes)

	for scanner.Scan() {
		stats.Lines++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		env, err := DecodeEnvelope(line)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}

		res := d.Dispatch(env)
		stats.Events++
		stats.Outcomes[res.Outcome]++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading session file: %w", err)
	}
	return stats, nil
}
