package geo

// aliases maps folded dataset and world-atlas spellings to reference names.
var aliases = map[string]string{
	// Dataset abbreviations.
	"usa":                      "United States",
	"us":                       "United States",
	"u.s.":                     "United States",
	"u.s.a.":                   "United States",
	"united states of america": "United States",
	"america":                  "United States",
	"uk":                       "United Kingdom",
	"u.k.":                     "United Kingdom",
	"britain":                  "United Kingdom",
	"great britain":            "United Kingdom",
	"england":                  "United Kingdom",
	"uae":                      "United Arab Emirates",
	"russia":                   "Russian Federation",
	"south korea":              "Republic of Korea",
	"korea, south":             "Republic of Korea",
	"north korea":              "Dem. Rep. Korea",
	"korea, north":             "Dem. Rep. Korea",
	"dprk":                     "Dem. Rep. Korea",

	// Common survey spellings.
	"drc":                         "Democratic Republic of the Congo",
	"dr congo":                    "Democratic Republic of the Congo",
	"congo, dem. rep.":            "Democratic Republic of the Congo",
	"congo":                       "Republic of the Congo",
	"congo, rep.":                 "Republic of the Congo",
	"ivory coast":                 "Côte d'Ivoire",
	"cote d'ivoire":               "Côte d'Ivoire",
	"burma":                       "Myanmar",
	"laos":                        "Lao PDR",
	"czechia":                     "Czech Republic",
	"swaziland":                   "Kingdom of eSwatini",
	"eswatini":                    "Kingdom of eSwatini",
	"gambia":                      "The Gambia",
	"brunei":                      "Brunei Darussalam",
	"serbia":                      "Republic of Serbia",
	"bosnia":                      "Bosnia and Herzegovina",
	"north macedonia":             "Macedonia",
	"east timor":                  "Timor-Leste",
	"viet nam":                    "Vietnam",
	"syrian arab republic":        "Syria",
	"iran, islamic rep.":          "Iran",
	"türkiye":                     "Turkey",
	"turkiye":                     "Turkey",
	"the bahamas":                 "Bahamas",
	"the netherlands":             "Netherlands",
	"holland":                     "Netherlands",
	"palestinian territories":     "Palestine",
	"state of palestine":          "Palestine",
	"united republic of tanzania": "Tanzania",

	// World-atlas short names.
	"dem. rep. congo":        "Democratic Republic of the Congo",
	"s. sudan":               "South Sudan",
	"eq. guinea":             "Equatorial Guinea",
	"solomon is.":            "Solomon Islands",
	"falkland is.":           "Falkland Islands",
	"bosnia and herz.":       "Bosnia and Herzegovina",
	"w. sahara":              "Western Sahara",
	"n. cyprus":              "Northern Cyprus",
	"fr. s. antarctic lands": "French Southern and Antarctic Lands",
	"central african rep.":   "Central African Republic",
	"dominican rep.":         "Dominican Republic",
	"lao":                    "Lao PDR",
	"czech rep.":             "Czech Republic",
}
