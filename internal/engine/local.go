package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chadiek/voicechat/internal/chat"
)

// arithmeticRe matches questions like "what is 25 times 4". Operands are
// integers; the computation itself runs in float64.
var arithmeticRe = regexp.MustCompile(`what is (-?\d+) (plus|minus|times|divided by) (-?\d+)`)

// timeWordRe matches "time" as a whole word so that "25 times 4" does not
// trigger the clock branch.
var timeWordRe = regexp.MustCompile(`\btime\b`)

var dateWordRe = regexp.MustCompile(`\bdate\b`)

// Local is the offline response engine: a fixed keyword cascade with a small
// regex calculator. It never fails and keeps no history.
type Local struct {
	// Now is the clock used for the time and date branches. Defaults to
	// time.Now; tests inject a fixed clock.
	Now func() time.Time
}

// NewLocal constructs a Local engine using the wall clock.
func NewLocal() *Local {
	return &Local{Now: time.Now}
}

// Respond implements Engine. The cascade is evaluated against the lower-cased
// input in a fixed precedence order; the first matching branch wins.
func (l *Local) Respond(_ context.Context, message string, _ []chat.Turn) (string, error) {
	now := l.Now
	if now == nil {
		now = time.Now
	}
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return "Hello! How can I help you today?", nil
	case timeWordRe.MatchString(lower):
		return fmt.Sprintf("The current time is %s.", now().Format("3:04 PM")), nil
	case dateWordRe.MatchString(lower):
		return fmt.Sprintf("Today is %s.", now().Format("Monday, January 2, 2006")), nil
	case strings.Contains(lower, "weather"):
		return "I don't have access to live weather data, but you can check your favorite weather app for the latest forecast.", nil
	case strings.Contains(lower, "remind"):
		return "Got it, I'll keep that in mind. Consider your reminder noted!", nil
	case strings.Contains(lower, "play music") || strings.Contains(lower, "play song"):
		return "I can't play music myself, but your music app should have you covered.", nil
	case strings.Contains(lower, "calculate") || strings.Contains(lower, "math"):
		return "Sure, ask me something like: what is 12 times 8.", nil
	case strings.Contains(lower, "search") || strings.Contains(lower, "look up"):
		return "I can't browse the web from here, but a quick search should turn that up.", nil
	}

	if m := arithmeticRe.FindStringSubmatch(lower); m != nil {
		return l.calculate(m), nil
	}

	return fmt.Sprintf("I heard you say: %s. I'm still learning, so I might not have a good answer for that yet.", message), nil
}

// calculate evaluates a matched arithmetic question. Division runs in float64;
// dividing by zero therefore yields "+Inf", "-Inf" or "NaN" rather than an
// error.
func (l *Local) calculate(m []string) string {
	a, _ := strconv.ParseFloat(m[1], 64)
	b, _ := strconv.ParseFloat(m[3], 64)
	var v float64
	switch m[2] {
	case "plus":
		v = a + b
	case "minus":
		v = a - b
	case "times":
		v = a * b
	case "divided by":
		v = a / b
	}
	return fmt.Sprintf("%s %s %s is %s.", m[1], m[2], m[3], strconv.FormatFloat(v, 'f', -1, 64))
}
