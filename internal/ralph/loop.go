// Package ralph reads and advances the Ralph-loop state file, a small
// markdown document with line-oriented "key: value" fields:
//
//	status: active
//	iterations: 2
//	max_iterations: 10
//
// The loop is created by external tooling. This package only flips its
// status to done and bumps the iteration counter; it never deletes it.
package ralph

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"agentkit/internal/logging"
)

// DoneSentinel in the assistant output or prompt ends the loop.
const DoneSentinel = "RALPH_DONE"

var (
	statusActiveRe  = regexp.MustCompile(`(?im)^status:\s*active`)
	iterationsRe    = regexp.MustCompile(`(?m)^iterations:\s*(\d+)`)
	maxIterationsRe = regexp.MustCompile(`(?m)^max_iterations:\s*(\d+)`)
)

// Writer persists a new file body. The state store satisfies it.
type Writer interface {
	Write(path string, content any) bool
}

// Status is the outcome of checking the loop.
type Status struct {
	Active    bool
	Iteration int
	// Finished is set when this check flipped the loop to done.
	Finished bool
}

// Check reports whether the loop at path is active. When the sentinel is
// present or the iteration cap is reached, the file is rewritten with
// status done and the loop is reported inactive.
func Check(w Writer, path, assistantText, prompt string) Status {
	content, ok := readFile(path)
	if !ok || !statusActiveRe.MatchString(content) {
		return Status{}
	}

	if strings.Contains(assistantText+" "+prompt, DoneSentinel) {
		markDone(w, path, content)
		return Status{Finished: true}
	}

	iterations, hasIter := intField(iterationsRe, content)
	maxIterations, hasMax := intField(maxIterationsRe, content)
	if hasIter && hasMax && iterations >= maxIterations {
		markDone(w, path, content)
		return Status{Finished: true, Iteration: iterations}
	}

	return Status{Active: true, Iteration: iterations}
}

// Increment bumps the iteration counter, adding one when the file has none.
func Increment(w Writer, path string) bool {
	content, ok := readFile(path)
	if !ok {
		return false
	}
	var next string
	if n, found := intField(iterationsRe, content); found {
		next = iterationsRe.ReplaceAllLiteralString(content, "iterations: "+strconv.Itoa(n+1))
	} else {
		next = content + "\niterations: 1\n"
	}
	return write(w, path, next)
}

func markDone(w Writer, path, content string) {
	logging.HookDebug("ralph loop done path=%s", path)
	write(w, path, statusActiveRe.ReplaceAllString(content, "status: done"))
}

// write trims trailing newlines because the store appends one.
func write(w Writer, path, content string) bool {
	return w.Write(path, strings.TrimRight(content, "\n"))
}

func readFile(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func intField(re *regexp.Regexp, content string) (int, bool) {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
