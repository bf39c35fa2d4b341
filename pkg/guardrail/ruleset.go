package guardrail

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Ruleset holds the heuristic signal sets and weights driving the
// analyzer. The compiled-in defaults mirror well-known jailbreak
// phrasings; a YAML file can swap them out for classroom exercises
// without rebuilding.
type Ruleset struct {
	JailbreakPatterns  []string `yaml:"jailbreak_patterns"`
	JailbreakKeywords  []string `yaml:"jailbreak_keywords"`
	InjectionWords     []string `yaml:"injection_words"`
	RoleplayPhrases    []string `yaml:"roleplay_phrases"`
	RefusalPatterns    []string `yaml:"refusal_patterns"`
	HarmfulCompletions []string `yaml:"harmful_completions"`

	PatternWeight    float64 `yaml:"pattern_weight"`
	KeywordWeight    float64 `yaml:"keyword_weight"`
	InjectionWeight  float64 `yaml:"injection_weight"`
	RoleplayWeight   float64 `yaml:"roleplay_weight"`
	CompletionWeight float64 `yaml:"completion_weight"`

	InputThreshold  float64 `yaml:"input_threshold"`
	OutputThreshold float64 `yaml:"output_threshold"`
}

func DefaultRuleset() *Ruleset {
	return &Ruleset{
		JailbreakPatterns: []string{
			`ignore.{0,20}(previous|above|system).{0,20}instruction`,
			`act.{0,20}as.{0,20}(DAN|jailbreak|evil)`,
			`forget.{0,20}(rules|guidelines|instructions)`,
			`pretend.{0,20}(you are|to be).{0,20}(not|without).{0,20}(safe|ethical)`,
			`bypass.{0,20}(safety|guardrails|filters)`,
			`enable.{0,20}developer.{0,20}mode`,
			`hypothetically.{0,20}speaking`,
			`in.{0,20}a.{0,20}fictional.{0,20}world`,
		},
		JailbreakKeywords: []string{
			"jailbreak", "DAN", "bypass", "ignore instructions",
			"forget rules", "hypothetically", "pretend you are not",
			"act as if", "enable developer mode", "unrestricted mode",
		},
		InjectionWords:  []string{"ignore", "forget", "override"},
		RoleplayPhrases: []string{"act as", "pretend to be", "roleplay as"},
		RefusalPatterns: []string{
			`I can't (help with|assist with|provide)`,
			`I cannot (provide|give you|assist)`,
			`I'm not able to`,
			`against my (programming|guidelines|instructions)`,
			`I'm not (allowed|permitted) to`,
		},
		HarmfulCompletions: []string{
			`here's how to (hack|break|bypass)`,
			`to ignore (safety|ethical) guidelines`,
			`I'll pretend to be`,
		},
		PatternWeight:    0.3,
		KeywordWeight:    0.2,
		InjectionWeight:  0.1,
		RoleplayWeight:   0.15,
		CompletionWeight: 0.4,
		InputThreshold:   0.5,
		OutputThreshold:  0.3,
	}
}

// LoadRuleset reads a YAML ruleset from path, falling back to the
// defaults when the file does not exist. Unset weights and thresholds
// in the file keep their default values.
func LoadRuleset(path string) (*Ruleset, error) {
	if path == "" {
		return DefaultRuleset(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultRuleset(), nil
		}
		return nil, err
	}

	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, err
	}
	applyRulesetDefaults(&rs)
	return &rs, nil
}

func applyRulesetDefaults(rs *Ruleset) {
	def := DefaultRuleset()
	if len(rs.JailbreakPatterns) == 0 {
		rs.JailbreakPatterns = def.JailbreakPatterns
	}
	if len(rs.JailbreakKeywords) == 0 {
		rs.JailbreakKeywords = def.JailbreakKeywords
	}
	if len(rs.InjectionWords) == 0 {
		rs.InjectionWords = def.InjectionWords
	}
	if len(rs.RoleplayPhrases) == 0 {
		rs.RoleplayPhrases = def.RoleplayPhrases
	}
	if len(rs.RefusalPatterns) == 0 {
		rs.RefusalPatterns = def.RefusalPatterns
	}
	if len(rs.HarmfulCompletions) == 0 {
		rs.HarmfulCompletions = def.HarmfulCompletions
	}
	if rs.PatternWeight == 0 {
		rs.PatternWeight = def.PatternWeight
	}
	if rs.KeywordWeight == 0 {
		rs.KeywordWeight = def.KeywordWeight
	}
	if rs.InjectionWeight == 0 {
		rs.InjectionWeight = def.InjectionWeight
	}
	if rs.RoleplayWeight == 0 {
		rs.RoleplayWeight = def.RoleplayWeight
	}
	if rs.CompletionWeight == 0 {
		rs.CompletionWeight = def.CompletionWeight
	}
	if rs.InputThreshold == 0 {
		rs.InputThreshold = def.InputThreshold
	}
	if rs.OutputThreshold == 0 {
		rs.OutputThreshold = def.OutputThreshold
	}
}
