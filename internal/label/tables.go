package label

// subjectAlias is one row of the subject vocabulary. Rows are matched in
// declaration order and an alias must not appear under two canonicals.
// A row whose alias contains another row's alias as a whole word
// ("english literature" and "english") must come first.
type subjectAlias struct {
	canonical string
	aliases   []string
}

var subjectTable = []subjectAlias{
	{"math", []string{"math", "mathematics", "additional math", "further math"}},
	{"physics", []string{"physics", "phys"}},
	{"chemistry", []string{"chemistry", "chem"}},
	{"biology", []string{"biology", "bio"}},
	{"english literature", []string{"english literature", "literature"}},
	{"english language", []string{"english", "english language", "esl", "first language english", "second language english"}},
	{"computer science", []string{"computer science", "cs"}},
	{"ict", []string{"ict", "information and communication technology"}},
	{"business", []string{"business", "business studies"}},
	{"economics", []string{"economics", "econ"}},
	{"accounting", []string{"accounting", "accounts"}},
	{"geography", []string{"geography", "geo"}},
	{"history", []string{"history"}},
	{"arabic", []string{"arabic", "arabic first language", "arabic foreign language"}},
	{"french", []string{"french"}},
	{"german", []string{"german"}},
	{"spanish", []string{"spanish"}},
	{"sociology", []string{"sociology"}},
	{"humanities & social sciences", []string{"humanities", "social sciences"}},
	{"environmental management", []string{"environmental management", "em"}},
	{"physical education", []string{"pe", "physical education"}},
	{"travel & tourism", []string{"travel & tourism", "travel", "tourism"}},
}

// niceNames overrides the title-cased display form of a canonical key.
var niceNames = map[string]string{
	"ict":                "ICT",
	"cs":                 "Computer Science",
	"pe":                 "Physical Education",
	"english language":   "English Language",
	"english literature": "English Literature",
	"math":               "Math",
}

// Option is a selectable keyboard entry: a short code and its button label.
type Option struct {
	Code  string
	Label string
}

// Group is a titled block of subject options on the subject keyboard.
type Group struct {
	Title   string
	Options []Option
}

var subjectGroups = []Group{
	{"Core subjects", []Option{
		{"MTH", "Mathematics"},
		{"ENL", "English Language"},
		{"ENLIT", "English Literature"},
		{"BIO", "Biology"},
		{"CHE", "Chemistry"},
		{"PHY", "Physics"},
		{"HUM", "Humanities & Social Sciences"},
		{"BUS", "Business Studies"},
		{"ECO", "Economics"},
		{"ACC", "Accounting"},
		{"SOC", "Sociology"},
	}},
	{"Languages", []Option{
		{"FR", "French"},
		{"DE", "German"},
		{"AR", "Arabic (First or Second Language)"},
	}},
	{"Creative & Technical", []Option{
		{"ICT", "Information & Communication Technology (ICT)"},
		{"CS", "Computer Science"},
	}},
	{"Other options", []Option{
		{"EM", "Environmental Management"},
		{"PE", "Physical Education (PE)"},
		{"TT", "Travel & Tourism"},
	}},
}

var codeToSubject = map[string]string{
	"MTH":   "Math",
	"ENL":   "English Language",
	"ENLIT": "English Literature",
	"BIO":   "Biology",
	"CHE":   "Chemistry",
	"PHY":   "Physics",
	"HUM":   "Humanities & Social Sciences",
	"BUS":   "Business",
	"ECO":   "Economics",
	"ACC":   "Accounting",
	"SOC":   "Sociology",
	"FR":    "French",
	"DE":    "German",
	"AR":    "Arabic",
	"ICT":   "ICT",
	"CS":    "Computer Science",
	"EM":    "Environmental Management",
	"PE":    "Physical Education",
	"TT":    "Travel & Tourism",
}

// Canonical board identifiers.
const (
	BoardCambridge = "cambridge"
	BoardEdexcel   = "edexcel"
	BoardOxfordAQA = "oxfordaqa"
)

type boardAlias struct {
	canonical string
	aliases   []string
}

var boardTable = []boardAlias{
	{BoardCambridge, []string{"cambridge", "cie", "caie", "cambridge international", "cambridge igcse"}},
	{BoardEdexcel, []string{"edexcel", "pearson", "pearson edexcel", "edexcel international"}},
	{BoardOxfordAQA, []string{"oxfordaqa", "oxford aqa", "oxford", "aqa", "oxford international aqa"}},
}

// Board codes used on the keyboard and in callback payloads.
var boardCodes = map[string]string{
	"C": "Cambridge",
	"E": "Edexcel",
	"O": "OxfordAQA",
}

var boardDisplay = map[string]string{
	BoardCambridge: "Cambridge",
	BoardEdexcel:   "Edexcel",
	BoardOxfordAQA: "OxfordAQA",
}
