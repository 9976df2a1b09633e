// Command reshape reads one JSON telemetry record per line and writes the
// reshaped record for each.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"metricshape/internal/logging"
	"metricshape/internal/transform"
)

const maxLine = 4 << 20

func main() {
	in := flag.String("in", "", "input file (default stdin)")
	provider := flag.String("provider", "cli", "provider name passed to the transformer")
	topic := flag.String("topic", "", "topic name passed to the transformer")
	prefix := flag.String("prefix", "", "initialization info")
	flag.Parse()

	logging.InitFromEnv()
	if err := run(*in, *provider, *topic, *prefix, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "reshape:", err)
		os.Exit(1)
	}
}

func run(path, provider, topic, prefix string, out io.Writer) error {
	r := io.Reader(os.Stdin)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	eng := transform.NewEngine(nil)
	if prefix != "" {
		eng.Initialize(prefix)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	lines := make([]int, 0, 64) // batch index -> 1-based line number
	var scanErr error
	records := func(yield func(string) bool) {
		n := 0
		for sc.Scan() {
			n++
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			lines = append(lines, n)
			if !yield(line) {
				return
			}
		}
		scanErr = sc.Err()
	}

	w := bufio.NewWriter(out)
	defer w.Flush()
	if err := reshapeAll(eng, provider, topic, records, w); err != nil {
		var be *transform.BatchError
		if errors.As(err, &be) && be.Index < len(lines) {
			return fmt.Errorf("line %d: %w", lines[be.Index], be.Err)
		}
		return err
	}
	return scanErr
}

func reshapeAll(eng *transform.Engine, provider, topic string, records iter.Seq[string], w io.Writer) error {
	b := eng.TransformBatch(provider, topic, records)
	if b == nil {
		return nil
	}
	defer b.Close()
	for b.Next() {
		if _, err := fmt.Fprintln(w, b.Record()); err != nil {
			return err
		}
	}
	return b.Err()
}
