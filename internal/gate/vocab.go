package gate

// allowedTopics is the fixed knowledge-base vocabulary used for topic
// relevance scoring. Bilingual: the deployments this fronts hold mixed
// German/English wikis.
var allowedTopics = []string{
	// German knowledge base terms
	"dokument", "dokumente", "dokumentation", "handbuch", "anleitung", "hilfe",
	"wiki", "confluence", "seite", "seiten", "inhalt", "information", "wissen",
	"tutorial", "leitfaden", "verfahren", "prozess", "konfiguration",
	"einstellung", "setup", "installation", "verwendung", "nutzung", "bedienung",
	"funktion", "feature", "merkmal", "eigenschaft", "problem", "lösung", "fehler",
	"fehlerbehebung", "unterstützung", "frage",
	"antwort", "erklärung", "beschreibung", "definition", "bedeutung", "beispiel",
	"cloud", "server", "dienst", "api", "integration",
	"datenbank", "speicher", "sicherheit", "backup", "migration", "update",
	"version", "release", "changelog", "notizen", "protokoll", "log",

	// English knowledge base terms
	"document", "documents", "documentation", "manual", "guide", "help",
	"page", "pages", "content", "knowledge",
	"howto", "procedure", "process", "configuration", "config",
	"setting", "usage", "use", "function",
	"solution", "error", "troubleshooting", "support", "question",
	"answer", "explanation", "description", "meaning", "example",
	"aws", "service", "system",
	"database", "storage", "security", "notes",
}
