package scraper

// Curated starting points for bulk legal-content scrapes. These match the
// default site configs in DefaultRegistry.

// UkraineLegalURLs lists core Ukrainian legislation and court resources.
var UkraineLegalURLs = []string{
	"https://zakon.rada.gov.ua/laws/show/254%D0%BA/96-%D0%B2%D1%80", // Constitution of Ukraine
	"https://zakon.rada.gov.ua/laws/show/435-15",                    // Civil Code
	"https://zakon.rada.gov.ua/laws/show/2341-14",                   // Criminal Code
	"https://zakon.rada.gov.ua/laws/show/322-08",                    // Labour Code
	"https://court.gov.ua/en/",
	"https://supreme.court.gov.ua/supreme/",
}

// IrelandLegalURLs lists core Irish legislation and citizens' rights pages.
var IrelandLegalURLs = []string{
	"https://www.citizensinformation.ie/en/employment/employment-rights-and-conditions/",
	"https://www.citizensinformation.ie/en/housing/renting-a-home/tenants-rights-and-obligations/",
	"https://www.citizensinformation.ie/en/justice/courtroom/courtroom/",
	"https://www.irishstatutebook.ie/eli/1937/cons/en/html",
	"https://www.irishstatutebook.ie/eli/2005/act/26/enacted/en/html",
	"https://www.courts.ie/judgments",
}
