package classifier

import (
	"regexp"

	"github.com/xaenox/focusguard/internal/models"
)

// ProductName is always treated as work.
const ProductName = "focusguard"

type patternGroup struct {
	category models.Category
	patterns []*regexp.Regexp
}

var patternGroups = []patternGroup{
	{
		category: models.CategoryEntertainment,
		patterns: compileAll(
			`\b(youtube|netflix|spotify|instagram|facebook|twitter|tiktok|reddit|twitch|discord)\b`,
			`\b(game|gaming|play|movie|music|video|stream|live)\b`,
			`\b(entertainment|fun|funny|meme|joke|comedy|drama)\b`,
			`\b(reality|show|series|episode|season|trailer|preview)\b`,
		),
	},
	{
		category: models.CategoryEducational,
		patterns: compileAll(
			`\b(course|tutorial|learn|study|education|academic|university|college|school)\b`,
			`\b(lecture|lesson|assignment|homework|exam|test|quiz|research|paper)\b`,
			`\b(thesis|dissertation|documentation|guide|manual|book|textbook)\b`,
			`\b(reference|library|scholar|professor|teacher|instructor|student)\b`,
		),
	},
	{
		category: models.CategoryProductive,
		patterns: compileAll(
			`\b(work|project|task|job|business|office|meeting|presentation|report)\b`,
			`\b(analysis|data|code|programming|development|design|planning|strategy)\b`,
			`\b(management|admin|dashboard|tool|software|application|system)\b`,
			`\b(database|server|network|security|finance|accounting|marketing)\b`,
			`\b(sales|customer|client|product|service|quality|efficiency)\b`,
		),
	},
}

var (
	// The app patterns below are matched against a whole title segment, see
	// appSegments.
	devToolPattern = regexp.MustCompile(`(?i)^(visual studio( code)?|vs ?code|code\.exe|cursor|intellij( idea)?|pycharm|goland|webstorm|clion|android studio|xcode|sublime text|notepad\+\+|vim|nvim|neovim|emacs|jupyter( notebook|lab)?|terminal|iterm2?|powershell|windows powershell|cmd\.exe|command prompt|windows terminal|gnome-terminal|konsole|git bash|postman|docker desktop)(\.exe)?( \(.*\))?$`)

	// A file name first, optionally followed by an editor marker such as
	// "(Working Tree)" or "[Preview]".
	codeFilePattern = regexp.MustCompile(`(?i)^[●•*\s]*[\w.\-/\\~:]*?[\w-]{2,}\.(py|go|js|mjs|ts|tsx|jsx|java|kt|c|cc|cpp|h|hpp|cs|rs|rb|php|swift|scala|sql|sh|bash|ps1|yaml|yml|toml|json|ipynb|vue|svelte|html|css|scss|md)(\s+[(\[].*)?$`)

	productiveAppPattern = regexp.MustCompile(`(?i)^(slack|notion|jira|confluence|trello|asana|microsoft teams|zoom( meeting| workplace)?|google meet|outlook|microsoft outlook|gmail|excel|microsoft excel|microsoft word|powerpoint|google docs|google sheets|google slides|google calendar|figma|github|gitlab|bitbucket|stack overflow)(\.exe)?$`)

	segmentSeparator = regexp.MustCompile(`\s+[-—–|·]\s+`)

	browserProcessPattern = regexp.MustCompile(`(?i)^(google chrome|chrome(\.exe)?|chromium|firefox(\.exe)?|mozilla firefox|msedge(\.exe)?|microsoft edge|brave(\.exe)?|brave browser|opera(\.exe)?|safari|vivaldi(\.exe)?|arc)$`)

	browserSuffixPattern = regexp.MustCompile(`(?i)\s+[-—]\s+(google chrome|chromium|mozilla firefox|firefox|microsoft edge|brave|opera|safari|vivaldi|arc)$`)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}
