package evals

import "regexp"

// Tool sets shared by the scorers.
var (
	exploreTools = map[string]bool{"Glob": true, "Grep": true, "Read": true, "Task": true}
	editTools    = map[string]bool{"Edit": true, "Write": true, "MultiEdit": true}
	personaNames = []string{"sisyphus", "hephaestus", "atlas", "prometheus"}
)

var (
	verificationRe = regexp.MustCompile(`(?i)\b(test|jest|pytest|vitest|mocha|typecheck|tsc|mypy|pyright|` +
		`build|make|cargo build|go build|npm run build|` +
		`lint|eslint|flake8|ruff|shellcheck)\b`)
	codeFileRe = regexp.MustCompile(`(?i)\.(ts|tsx|js|jsx|py|go|rs|java|rb|php|c|cpp|sh)$`)
)

// Verification kinds counted separately for execution depth.
var verificationKinds = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"test", regexp.MustCompile(`(?i)\b(test|jest|pytest|vitest|mocha)\b`)},
	{"typecheck", regexp.MustCompile(`(?i)\b(tsc|typecheck|mypy|pyright)\b`)},
	{"build", regexp.MustCompile(`(?i)\b(build|make|cargo build|go build|npm run build)\b`)},
	{"lint", regexp.MustCompile(`(?i)\b(lint|eslint|flake8|ruff|shellcheck)\b`)},
}

// Conversation patterns for session signals.
var (
	repairRe = regexp.MustCompile(`(?i)\b(i meant|no,? i|let me rephrase|correction|actually i want|` +
		`that's not what|i said|wrong|not what i asked)\b`)
	frustrationMildRe = regexp.MustCompile(`(?i)\b(this is frustrating|doesn't work|not working|broken|annoying)\b`)
	frustrationModRe  = regexp.MustCompile(`(?i)\b(confused|what are you doing|i already told you|why did you|` +
		`you keep|wrong again|still wrong)\b`)
	// Shouting is only upper case; the rest ignores case.
	frustrationSevereRe = regexp.MustCompile(`[A-Z]{5,}|[!?]{3,}|(?i:\b(fuck|shit|damn|hell|crap|wtf)\b)`)
	positiveRe          = regexp.MustCompile(`(?i)\b(thank you|thanks|perfect|great|excellent|awesome|exactly what i wanted|` +
		`that's exactly|nice|well done|good job)\b`)
	escalationRe = regexp.MustCompile(`(?i)\b(i give up|this doesn't work|forget it|do it manually|` +
		`never mind|nevermind|i'll do it myself)\b`)
)

// isVerification reports whether a Bash call ran a test, build, typecheck
// or lint command.
func isVerification(c ToolCall) bool {
	return c.Name == "Bash" && verificationRe.MatchString(c.Target())
}

func isCodeEdit(c ToolCall) bool {
	return editTools[c.Name] && codeFileRe.MatchString(c.Target())
}
