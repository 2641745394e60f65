package classify

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lccweb/agentwave/internal/models"
)

func agents(tasks []models.TaskSpec) []string {
	var out []string
	for _, t := range tasks {
		out = append(out, t.Agent)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   []string
	}{
		{"run all tests", "Run all tests", []string{AgentTestRunner, AgentTestRunner}},
		{"dark theme", "Make the site dark", []string{AgentBeautifier}},
		{"css cleanup", "sanitize duplicate selectors", []string{AgentFixer}},
		{"theme and css", "harmonise le style css", []string{AgentBeautifier, AgentFixer}},
		{"lighthouse", "lighthouse audit please", []string{AgentTestRunner}},
		{"babylon", "polish the babylon scene", []string{AgentBabylon}},
		{"three", "speed up three.js", []string{AgentThreeJS}},
		{"canvas", "canvas version is slow", []string{AgentJS2D}},
		{"image analysis", "describe the screenshot", []string{AgentLLaVA}},
		{"image without analysis", "take a screenshot", []string{AgentWaveLeader}},
		{"fallback", "do something nice", []string{AgentWaveLeader}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, agents(Classify(tt.prompt))); diff != "" {
				t.Errorf("Classify(%q) agents mismatch (-want +got):\n%s", tt.prompt, diff)
			}
		})
	}
}

func TestClassifyFallbackInstruction(t *testing.T) {
	tasks := Classify("Do Something")
	require.Len(t, tasks, 1)
	assert.Equal(t, "Coordinate a wave of agents for: Do Something", tasks[0].Instruction)
}

func TestClassifyCreateFile(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   []models.TaskSpec
	}{
		{
			name:   "heart html",
			prompt: "Créer un fichier HTML avec un coeur",
			want: []models.TaskSpec{
				{Agent: models.DirectAgent, Instruction: "CREATE_FILE heart.html :: Créer un fichier HTML avec un coeur"},
			},
		},
		{
			name:   "generated css short-circuits style rules",
			prompt: "write a css file with a dark style",
			want: []models.TaskSpec{
				{Agent: models.DirectAgent, Instruction: "CREATE_FILE generated.css :: write a css file with a dark style"},
			},
		},
		{
			name:   "earlier matches are kept",
			prompt: "run tests then create js",
			want: []models.TaskSpec{
				{Agent: AgentTestRunner, Instruction: "Run all available tests (unit/perf/a11y)."},
				{Agent: models.DirectAgent, Instruction: "CREATE_FILE generated.js :: run tests then create js"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prompt)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
			assert.True(t, HasDirect(got))
		})
	}
}

func TestClassifyNeverEmpty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("plan has at least one task with an agent", prop.ForAll(
		func(prompt string) bool {
			tasks := Classify(prompt)
			if len(tasks) == 0 {
				return false
			}
			for _, task := range tasks {
				if task.Agent == "" || task.Instruction == "" {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestAgentList(t *testing.T) {
	assert.Equal(t, "none", AgentList(nil))
	assert.Equal(t, "fixer-agent, test-runner", AgentList([]models.TaskSpec{{Agent: AgentFixer}, {Agent: AgentTestRunner}}))
}

func TestArithmeticExpr(t *testing.T) {
	tests := []struct {
		prompt string
		expr   string
		ok     bool
	}{
		{"2+2=?", "2+2", true},
		{" (1 + 2) * 3 ", "(1 + 2) * 3", true},
		{"10 % 4", "10 % 4", true},
		{"???", "", false},
		{"2 apples + 3", "2 apples + 3", false},
		{"()", "()", false},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			expr, ok := ArithmeticExpr(tt.prompt)
			assert.Equal(t, tt.expr, expr)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr    string
		want    string
		wantErr bool
	}{
		{expr: "2+2", want: "4"},
		{expr: "(1 + 2) * 3", want: "9"},
		{expr: "7 / 2", want: "3.5"},
		{expr: "6 / 3", want: "2"},
		{expr: "1 / 3", want: "0.3333333333333333"},
		{expr: "0.1 + 0.2", want: "0.3"},
		{expr: "-5 + 2", want: "-3"},
		{expr: "10 % 4", want: "2"},
		{expr: "-7 % 3", want: "-1"},
		{expr: "7.5 % 2", want: "1.5"},
		{expr: "123456789 * 987654321", want: "121932631112635269"},
		{expr: "1 / 0", wantErr: true},
		{expr: "5 % 0", wantErr: true},
		{expr: "2**3", want: "8"},
		{expr: "2 ** 3 ** 2", want: "512"},
		{expr: "2 * 3 ** 2", want: "18"},
		{expr: "(-2) ** 3", want: "-8"},
		{expr: "2 ** -1", want: "0.5"},
		{expr: "-2 ** 2", wantErr: true},
		{expr: "09+1", want: "10"},
		{expr: "010 + 1", want: "9"},
		{expr: "007.5 * 2", want: "15"},
		{expr: ".5 + 5.", want: "5.5"},
		{expr: "7 % 2.5", want: "2"},
		{expr: "- -3", want: "3"},
		{expr: "1--1", wantErr: true},
		{expr: "1..2", wantErr: true},
		{expr: "2 3", wantErr: true},
		{expr: "(1 + ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGreetingAndQuestion(t *testing.T) {
	assert.True(t, IsGreeting("Hello there"))
	assert.True(t, IsGreeting("bonjour"))
	assert.False(t, IsGreeting("this is high priority"))

	assert.True(t, IsQuestion("what is the architecture"))
	assert.True(t, IsQuestion("ready?"))
	assert.True(t, IsQuestion("How does it work"))
	assert.False(t, IsQuestion("make it dark"))
}

func TestAnswer(t *testing.T) {
	assert.True(t, strings.HasPrefix(Answer("what is the architecture?"), "PROJECT STRUCTURE"))
	assert.True(t, strings.HasPrefix(Answer("which tech do you use"), "TECHNOLOGIES"))
	assert.True(t, strings.HasPrefix(Answer("list the agents?"), "AVAILABLE AGENTS"))
	assert.Equal(t, defaultAnswer, Answer("why?"))
}

func TestDeliberate(t *testing.T) {
	proposals, synthesis := Deliberate("fix the css bug", nil)

	want := []Proposal{
		{Agent: AgentBeautifier, Text: "Analyze and handle the request"},
		{Agent: AgentFixer, Text: "Fix the CSS problems and detected errors"},
		{Agent: AgentTestRunner, Text: "Analyze and handle the request"},
		{Agent: "project-coordinator", Text: "Coordinate the other agents' actions"},
	}
	if diff := cmp.Diff(want, proposals); diff != "" {
		t.Errorf("Deliberate() proposals mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, synthesis, `Action plan for "fix the css bug"`)

	proposals, _ = Deliberate("improve the ui", []string{AgentBeautifier})
	require.Len(t, proposals, 1)
	assert.Equal(t, "Harmonize the dark theme and improve the user interface", proposals[0].Text)
}
