// Package classify turns free-text prompts into agent task plans.
package classify

import (
	"regexp"
	"strings"

	"github.com/lccweb/agentwave/internal/models"
)

// Agent names produced by Classify.
const (
	AgentLLaVA       = "llava-agent"
	AgentTestRunner  = "test-runner"
	AgentBeautifier  = "website-beautifier"
	AgentFixer       = "fixer-agent"
	AgentBabylon     = "babylon-game-finisher"
	AgentThreeJS     = "threejs-game-finisher"
	AgentJS2D        = "js2d-game-finisher"
	AgentWaveLeader  = "prompt-wave-coordinator"
	CreateFileAction = "CREATE_FILE"
)

var (
	imageWords    = regexp.MustCompile(`\b(image|screenshot|photo|picture|capture|écran)\b`)
	analysisWords = regexp.MustCompile(`\b(describe|analyze|explain|what|décrire|analyser|expliquer|quoi)\b`)
	runTests      = regexp.MustCompile(`(run|launch|start)\s+(all\s+)?tests?|test\s*suite|run\s*e2e|run\s*unit`)
	createIntent  = regexp.MustCompile(`(ecris|écris|creer|créer|crée|create|write)\b`)
	typeHint      = regexp.MustCompile(`(html|css|js)\b`)
	heartWords    = regexp.MustCompile(`(coeur|cœur|heart)`)
	themeWords    = regexp.MustCompile(`dark|theme|style|harmonis(er|e)`)
	cssWords      = regexp.MustCompile(`css|brace|sanitize|validation|selector|duplicate`)
	qualityWords  = regexp.MustCompile(`test|lighthouse|axe|accessibilit|perf|performance`)
	babylonWords  = regexp.MustCompile(`babylon|3d|unified`)
	threeWords    = regexp.MustCompile(`three\.js|threejs|three\b`)
	canvasWords   = regexp.MustCompile(`2d|canvas|classique`)
)

type rule struct {
	match       func(p string) bool
	agent       string
	instruction string
}

// Keyword rules applied after the create-file check, in order.
var keywordRules = []rule{
	{
		match:       themeWords.MatchString,
		agent:       AgentBeautifier,
		instruction: "Harmonize the dark theme across all pages: reduce light surfaces, keep glassmorphism, strengthen contrast, keep buttons and inputs readable.",
	},
	{
		match:       cssWords.MatchString,
		agent:       AgentFixer,
		instruction: "Sanitize CSS: balance braces, remove duplicates, normalize variables and selectors, avoid restorations.",
	},
	{
		match:       qualityWords.MatchString,
		agent:       AgentTestRunner,
		instruction: "Run tests: smoke/performance/accessibility; skip Cypress by default.",
	},
	{
		match:       babylonWords.MatchString,
		agent:       AgentBabylon,
		instruction: "Improve visuals and apply the gameplay rules in the unified 3D game; keep the perf overlay and quick controls.",
	},
	{
		match:       threeWords.MatchString,
		agent:       AgentThreeJS,
		instruction: "Optimize the Three.js page: rendering, post-processing passes, FPS, clean logs.",
	},
	{
		match:       canvasWords.MatchString,
		agent:       AgentJS2D,
		instruction: "Improve UI/UX and performance of the 2D version; align HUD and menus.",
	},
}

// Classify maps a prompt to an ordered task plan. It never returns an empty plan.
// A create-file request short-circuits into a single direct task appended to
// whatever was matched before it.
func Classify(prompt string) []models.TaskSpec {
	p := strings.ToLower(prompt)
	var tasks []models.TaskSpec
	add := func(agent, instruction string) {
		tasks = append(tasks, models.TaskSpec{Agent: agent, Instruction: instruction})
	}

	if imageWords.MatchString(p) && analysisWords.MatchString(p) {
		add(AgentLLaVA, "Analyze and describe in detail the available images and screenshots with LLaVA.")
	}

	if runTests.MatchString(p) {
		add(AgentTestRunner, "Run all available tests (unit/perf/a11y).")
	}

	if createIntent.MatchString(p) {
		if m := typeHint.FindStringSubmatch(p); m != nil {
			base := "generated"
			if heartWords.MatchString(p) {
				base = "heart"
			}
			add(models.DirectAgent, CreateFileAction+" "+base+"."+m[1]+" :: "+prompt)
			return tasks
		}
	}

	for _, r := range keywordRules {
		if r.match(p) {
			add(r.agent, r.instruction)
		}
	}

	if len(tasks) == 0 {
		add(AgentWaveLeader, "Coordinate a wave of agents for: "+prompt)
	}
	return tasks
}

// HasDirect reports whether any task in the plan is handled in-process.
func HasDirect(tasks []models.TaskSpec) bool {
	for _, t := range tasks {
		if t.IsDirect() {
			return true
		}
	}
	return false
}

// AgentList joins the agent names of a plan for log output.
func AgentList(tasks []models.TaskSpec) string {
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		names = append(names, t.Agent)
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
