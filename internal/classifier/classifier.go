package classifier

import (
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/livp123/authguard/pkg/errors"
)

const (
	// TimestampLayout is the syslog high-precision timestamp that prefixes
	// every line, e.g. 2024-02-10T14:26:03.323862+01:00.
	// TimestampLayout 是每行日志开头的高精度时间戳格式。
	TimestampLayout = "2006-01-02T15:04:05.000000-07:00"
	// TimestampWidth is the length of a formatted TimestampLayout.
	TimestampWidth = len(TimestampLayout)
)

// Rule pairs a failure source marker with the phrase that must follow it.
// Rule 将失败来源标记与其后必须出现的短语配对。
type Rule struct {
	Marker string `yaml:"marker"`
	Phrase string `yaml:"phrase"`
}

// DefaultRules covers PAM and the unix_chkpwd helper.
// DefaultRules 覆盖 PAM 与 unix_chkpwd 辅助程序。
var DefaultRules = []Rule{
	{Marker: "pam_unix", Phrase: "authentication failure"},
	{Marker: "unix_chkpwd", Phrase: "password check failed"},
}

// Matches reports whether the marker occurs in line and the phrase occurs
// after the end of the first occurrence of the marker.
// Matches 判断行中是否出现标记，且短语出现在第一个标记之后。
func (r Rule) Matches(line string) bool {
	if r.Marker == "" || r.Phrase == "" {
		return false
	}
	i := strings.Index(line, r.Marker)
	if i < 0 {
		return false
	}
	return strings.Contains(line[i+len(r.Marker):], r.Phrase)
}

// IsFailureMessage reports whether line is an authentication failure
// according to DefaultRules.
// IsFailureMessage 根据默认规则判断该行是否为认证失败消息。
func IsFailureMessage(line string) bool {
	return matchRules(DefaultRules, line)
}

func matchRules(rules []Rule, line string) bool {
	for _, r := range rules {
		if r.Matches(line) {
			return true
		}
	}
	return false
}

// ExtractTimestampMillis parses the timestamp in the first TimestampWidth
// bytes of line and returns it in milliseconds since the epoch, or 0 when
// the line does not start with a valid timestamp.
// ExtractTimestampMillis 解析行首时间戳并返回毫秒时间，无法解析时返回 0。
func ExtractTimestampMillis(line string) int64 {
	if len(line) < TimestampWidth {
		return 0
	}
	t, err := time.Parse(TimestampLayout, line[:TimestampWidth])
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// Classifier matches lines against a rule set and optional boolean
// expressions. It is safe for concurrent use.
// Classifier 使用规则集与可选的布尔表达式匹配日志行。
type Classifier struct {
	rules       []Rule
	expressions []expression
}

type expression struct {
	source  string
	program *vm.Program
}

// New compiles a Classifier. An empty rule set selects DefaultRules.
// Every expression is compiled up front; the first invalid one fails
// construction.
// New 编译分类器。规则为空时使用默认规则；任何表达式编译失败都会返回错误。
func New(rules []Rule, expressions []string) (*Classifier, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	c := &Classifier{}
	for _, r := range rules {
		if r.Marker == "" || r.Phrase == "" {
			return nil, errors.NewConfigError("classifier.rules", r)
		}
		c.rules = append(c.rules, r)
	}

	for _, src := range expressions {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		program, err := expr.Compile(src, expr.Env(&Env{}), expr.AsBool())
		if err != nil {
			return nil, errors.NewExpressionError(src, err)
		}
		c.expressions = append(c.expressions, expression{source: src, program: program})
	}
	return c, nil
}

// Rules returns the active rule set.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// IsFailureMessage tries the rules in order and then the expressions.
// An expression that fails at run time does not match.
// IsFailureMessage 依次尝试规则与表达式，运行出错的表达式视为不匹配。
func (c *Classifier) IsFailureMessage(line string) bool {
	if matchRules(c.rules, line) {
		return true
	}
	if len(c.expressions) == 0 {
		return false
	}
	env := &Env{Line: line}
	for _, e := range c.expressions {
		out, err := expr.Run(e.program, env)
		if err != nil {
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return true
		}
	}
	return false
}
