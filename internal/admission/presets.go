package admission

import (
	"fmt"
	"sort"
)

// General is the reporting allowlist used by default.
var General = Rules{
	Name: "general",
	Phrases: []string{
		"special-case: financials q1",
		"show me report x",
	},
	Keywords: []string{
		"report",
		"financials",
		"sales",
		"special-case",
	},
	Patterns: []string{
		`\breport\s+\w+\b`,      // "report sales"
		`special-case[:\s]*\w+`, // "special-case: financials"
	},
}

// Mining scopes prompts to mining operations and geology.
var Mining = Rules{
	Name: "mining",
	Phrases: []string{
		"what is a stockpile",
		"explain strip ratio",
		"what is grade control",
	},
	Keywords: []string{
		"mining",
		"mineral",
		"mine site",
		"underground mine",
		"open pit",
		"open-pit",
		"orebody",
		"ore body",
		"ore grade",
		"tailings",
		"excavation",
		"haul truck",
		"assay",
		"geotechnical",
		"stope",
		"ventilation shaft",
		"smelter",
		"concentrator",
		"exploration drilling",
	},
	Patterns: []string{
		`\bdrill(ing)?\s+(and|&|n)\s+blast(ing)?\b`,
		`\b(iron|copper|gold|nickel|lithium|zinc|coal)\s+(ore|deposit|mine|concentrate)s?\b`,
		`\bmine\s+(planning|safety|design|closure|rehabilitation)\b`,
	},
}

var presets = map[string]Rules{
	General.Name: General,
	Mining.Name:  Mining,
}

// Preset compiles the built-in ruleset with the given name.
func Preset(name string) (*Ruleset, error) {
	r, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown ruleset preset %q (available: %v)", name, PresetNames())
	}
	return r.Compile()
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
