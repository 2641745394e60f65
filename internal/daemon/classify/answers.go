package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// GreetingAnswer is the reply to small talk; nothing is queued.
const GreetingAnswer = `Hello! Tell me which task to run (e.g. "run all tests", "modernize the dark theme", "create an html file with a heart").`

// DefaultDeliberationAgents take part in Deliberate when no agents are given.
var DefaultDeliberationAgents = []string{AgentBeautifier, AgentFixer, AgentTestRunner, "project-coordinator"}

var (
	greeting = regexp.MustCompile(`(?i)\b(bonjour|salut|hello|hi)\b`)
	question = regexp.MustCompile(`(?i)\?|\b(what|which|quel|quelle|que|qu'est|explique|explain|défin|define|doc|gdd|game design document|model|mod[eè]le|règles|rules|comment|how|comment ça marche|how does it work|gameplay|mécaniques|mechanics|code|structure|architecture|technologies|tech)\b`)
)

// IsGreeting reports whether the prompt is small talk.
func IsGreeting(prompt string) bool {
	return greeting.MatchString(prompt)
}

// IsQuestion reports whether the prompt asks for information rather than work.
func IsQuestion(prompt string) bool {
	return question.MatchString(prompt)
}

type topic struct {
	pattern *regexp.Regexp
	answer  string
}

var topics = []topic{
	{
		pattern: regexp.MustCompile(`(?i)\b(structure|architecture|organisation|organization)\b`),
		answer: `PROJECT STRUCTURE:
- 3 versions of the game: 2D (Canvas), 3D (Three.js), unified 3D (Babylon.js)
- Interconnected agents for automated development
- Technologies: HTML5, CSS3, JavaScript, Three.js, Babylon.js
- Available agents: test-runner, website-beautifier, fixer-agent, screenshot-agent, llava-agent, etc.`,
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(technologies|tech|framework|library)\b`),
		answer: `TECHNOLOGIES:
- Frontend: HTML5, CSS3, JavaScript ES6+
- 3D: Three.js, Babylon.js
- 2D: Canvas API
- Agents: external runners driven by the agentwave log daemon
- Tests: Jest, Lighthouse, Axe
- Image analysis: LLaVA`,
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(agent|agents)\b`),
		answer: `AVAILABLE AGENTS:
- coordinator: coordinates answers and tasks
- test-runner: runs quality tests
- website-beautifier: improves the user interface
- fixer-agent: fixes bugs and CSS problems
- screenshot-agent: takes screenshots
- llava-agent: analyzes images and screenshots
- project-coordinator: coordinates the other agents

Agents talk through the log stream; the coordinator runs one job at a time.`,
	},
}

const defaultAnswer = `I can help with:

PROJECT:
- "Project structure": architecture
- "Technologies": technical stack
- "Agents": the agent system

DEVELOPMENT:
- "Run all tests": quality checks
- "Fix the CSS": sanitize stylesheets
- "Create an html file": generate a page

Ask a more specific question for a detailed answer.`

// Answer returns a rule-based reply to a question.
func Answer(prompt string) string {
	for _, t := range topics {
		if t.pattern.MatchString(prompt) {
			return t.answer
		}
	}
	return defaultAnswer
}

// Proposal is one agent's suggested action during deliberation.
type Proposal struct {
	Agent string
	Text  string
}

// Deliberate produces one proposal per agent and a synthesis for the project
// coordinator. An empty agent list falls back to DefaultDeliberationAgents.
func Deliberate(prompt string, agents []string) ([]Proposal, string) {
	if len(agents) == 0 {
		agents = DefaultDeliberationAgents
	}
	p := strings.ToLower(prompt)

	proposals := make([]Proposal, 0, len(agents))
	for _, agent := range agents {
		proposals = append(proposals, Proposal{Agent: agent, Text: propose(agent, p)})
	}

	synthesis := fmt.Sprintf(`Action plan for "%s":
1. Analyze the request
2. Identify the appropriate agents
3. Run the necessary tasks
4. Validate the results`, prompt)
	return proposals, synthesis
}

var (
	uiWords      = regexp.MustCompile(`theme|style|ui|ux|design`)
	fixWords     = regexp.MustCompile(`css|bug|fix|error`)
	testingWords = regexp.MustCompile(`test|quality|performance`)
)

func propose(agent, p string) string {
	switch {
	case agent == AgentBeautifier && uiWords.MatchString(p):
		return "Harmonize the dark theme and improve the user interface"
	case agent == AgentFixer && fixWords.MatchString(p):
		return "Fix the CSS problems and detected errors"
	case agent == AgentTestRunner && testingWords.MatchString(p):
		return "Run the quality and performance tests"
	case agent == "project-coordinator":
		return "Coordinate the other agents' actions"
	}
	return "Analyze and handle the request"
}
