package enforce

import (
	"path/filepath"
	"strings"
)

// FileCategory is the classification a file path falls into for
// authorization purposes.
type FileCategory string

const (
	CategorySourceCode        FileCategory = "source_code"
	CategoryConfiguration     FileCategory = "configuration"
	CategoryTestFiles         FileCategory = "test_files"
	CategoryDocumentation     FileCategory = "documentation"
	CategoryProjectManagement FileCategory = "project_management"
	CategoryScaffolding       FileCategory = "scaffolding"
	CategoryResearchDocs      FileCategory = "research_docs"
	// CategoryUnknown covers paths no rule matches. No agent is
	// authorized to write unknown files.
	CategoryUnknown FileCategory = "unknown"
)

// categoryRule classifies paths using three strategies: glob patterns over
// the whole path, keywords contained in the lowered path, and file
// extensions. Rules are evaluated in order; the first hit wins.
type categoryRule struct {
	category   FileCategory
	patterns   []string
	keywords   []string
	extensions []string
	basenames  []string
}

// classificationRules order matters: tests beat source code (test_main.py),
// scaffolding beats configuration (openapi.yml), research beats plain
// documentation (research/analysis.md).
var classificationRules = []categoryRule{
	{
		category:  CategoryScaffolding,
		patterns:  []string{"**/templates/**", "templates/**"},
		keywords:  []string{"openapi", "swagger", "scaffold"},
		extensions: []string{".template", ".tmpl"},
	},
	{
		category: CategoryTestFiles,
		patterns: []string{"**/tests/**", "tests/**", "**/test/**"},
		keywords: []string{".test.", ".spec.", "_test.", "test_"},
	},
	{
		category: CategoryResearchDocs,
		patterns: []string{"**/research/**", "research/**", "**/investigation/**", "investigation/**"},
	},
	{
		category:  CategoryProjectManagement,
		patterns:  []string{"**/trackdown/**", "trackdown/**"},
		basenames: []string{"CLAUDE.md", "BACKLOG.md", "ROADMAP.md", "MILESTONES.md"},
		keywords:  []string{"status-report"},
	},
	{
		category:  CategoryConfiguration,
		basenames: []string{"Dockerfile", "Makefile", "requirements.txt", "go.mod", "go.sum"},
	},
	{
		category:   CategoryDocumentation,
		extensions: []string{".md", ".rst", ".txt", ".adoc"},
	},
	{
		category:   CategoryConfiguration,
		extensions: []string{".yml", ".yaml", ".toml", ".json", ".ini", ".env", ".sh", ".conf"},
	},
	{
		category: CategorySourceCode,
		extensions: []string{
			".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".go", ".rs",
			".c", ".h", ".cpp", ".rb", ".php", ".swift", ".kt", ".scala",
		},
	},
}

// Classify maps a file path to its category. Unmatched paths are
// CategoryUnknown.
func Classify(path string) FileCategory {
	normalized := filepath.ToSlash(path)
	lower := strings.ToLower(normalized)
	base := filepath.Base(normalized)
	lowerBase := strings.ToLower(base)
	ext := strings.ToLower(filepath.Ext(base))

	for _, rule := range classificationRules {
		for _, pattern := range rule.patterns {
			if globMatch(lower, pattern) {
				return rule.category
			}
		}
		for _, name := range rule.basenames {
			if base == name {
				return rule.category
			}
		}
		for _, kw := range rule.keywords {
			if strings.Contains(lowerBase, kw) {
				return rule.category
			}
		}
		for _, e := range rule.extensions {
			if ext == e {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}
