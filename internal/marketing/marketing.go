// Package marketing holds the static content of the landing page.
package marketing

const Brand = "DarkGuard"

type Link struct {
	Label string
	Href  string
}

type Feature struct {
	Icon        string
	Title       string
	Description string
}

type Hero struct {
	Title     string
	Highlight string
	Lead      string
	Primary   Link
	Secondary Link
	Badges    []string
}

type Page struct {
	Brand         string
	Nav           []Link
	SignIn        Link
	GetStarted    Link
	Hero          Hero
	FeaturesTitle string
	FeaturesLead  string
	Features      []Feature
	SignedIn      bool
}

var nav = []Link{
	{Label: "Features", Href: "#features"},
	{Label: "Security", Href: "#security"},
	{Label: "Download", Href: "#download"},
}

var features = []Feature{
	{
		Icon:        "brain",
		Title:       "AI-Powered Analysis",
		Description: "Advanced machine learning algorithms analyze web content in real-time to detect emerging threats and suspicious patterns.",
	},
	{
		Icon:        "shield",
		Title:       "Real-time Protection",
		Description: "Instant threat detection and blocking with zero-delay response to keep your browsing experience smooth and secure.",
	},
	{
		Icon:        "eye",
		Title:       "Privacy Guardian",
		Description: "Comprehensive tracking protection that blocks invasive scripts, cookies, and fingerprinting attempts.",
	},
	{
		Icon:        "zap",
		Title:       "Lightning Fast",
		Description: "Optimized performance with minimal impact on browser speed while maintaining maximum security coverage.",
	},
	{
		Icon:        "lock",
		Title:       "Data Encryption",
		Description: "End-to-end encryption for all data transmission ensuring your sensitive information stays private.",
	},
	{
		Icon:        "globe",
		Title:       "Global Threat Intel",
		Description: "Connected to worldwide threat intelligence networks for the most up-to-date protection against new attacks.",
	},
}

// Landing returns the landing page content. Callers get their own copy.
func Landing() Page {
	return Page{
		Brand:      Brand,
		Nav:        append([]Link(nil), nav...),
		SignIn:     Link{Label: "Sign In", Href: "/auth"},
		GetStarted: Link{Label: "Get Started", Href: "/auth"},
		Hero: Hero{
			Title:     "Protect Your",
			Highlight: "Digital Life",
			Lead: "Advanced AI-powered browser extension that detects threats, " +
				"blocks malicious content, and keeps your browsing secure with real-time protection.",
			Primary:   Link{Label: "Install Extension", Href: "#download"},
			Secondary: Link{Label: "View Dashboard", Href: "/dashboard"},
			Badges:    []string{"Chrome & Firefox", "AI-Powered Protection", "Real-time Analysis"},
		},
		FeaturesTitle: "Advanced Security Features",
		FeaturesLead: "Comprehensive protection powered by cutting-edge AI technology " +
			"and real-time threat intelligence.",
		Features: append([]Feature(nil), features...),
	}
}
