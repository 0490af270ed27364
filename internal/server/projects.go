package server

import (
	"sort"
	"time"
)

// Project is one portfolio entry. The catalog is the single source of truth
// for project data; entries are static and safe for concurrent reads.
type Project struct {
	ID           int
	Title        string
	Summary      string
	Description  string
	Category     string
	Technologies []string
	GitHubURL    string
	DemoURL      string
	Featured     bool
	Created      time.Time
}

type projectCatalog struct {
	byID  map[int]Project
	order []Project
}

func newProjectCatalog(projects []Project) *projectCatalog {
	c := &projectCatalog{byID: make(map[int]Project, len(projects))}
	for _, p := range projects {
		c.byID[p.ID] = p
	}
	c.order = append(c.order, projects...)
	// Featured first, newest first within each group.
	sort.SliceStable(c.order, func(i, j int) bool {
		if c.order[i].Featured != c.order[j].Featured {
			return c.order[i].Featured
		}
		return c.order[i].Created.After(c.order[j].Created)
	})
	return c
}

// All returns every project, featured first, then newest first.
func (c *projectCatalog) All() []Project {
	out := make([]Project, len(c.order))
	copy(out, c.order)
	return out
}

// ByID looks up a single project.
func (c *projectCatalog) ByID(id int) (Project, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Featured returns up to limit featured projects, newest first. A limit of
// zero or less means no limit.
func (c *projectCatalog) Featured(limit int) []Project {
	var out []Project
	for _, p := range c.order {
		if !p.Featured {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Related returns up to limit other projects in the same category.
func (c *projectCatalog) Related(id int, limit int) []Project {
	p, ok := c.byID[id]
	if !ok {
		return nil
	}
	var out []Project
	for _, other := range c.order {
		if other.ID == id || other.Category != p.Category {
			continue
		}
		out = append(out, other)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// siteProjects is the portfolio content served on /projects.
var siteProjects = newProjectCatalog([]Project{
	{
		ID:       1,
		Title:    "Personal Brand Website",
		Summary:  "This site: server-rendered pages with live streaming demos behind them.",
		Description: "Portfolio site whose demos are driven by an in-process streaming " +
			"engine: an LRU session store, a capped connection registry and a broadcast " +
			"router that drops the oldest frame instead of blocking a slow reader.",
		Category:     "web",
		Technologies: []string{"Go", "Echo", "WebSockets", "PostgreSQL", "Redis"},
		GitHubURL:    "https://github.com/Bhardin04/brianhardin.info",
		DemoURL:      "https://brianhardin.info",
		Featured:     true,
		Created:      time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:       2,
		Title:    "Sales Analytics Dashboard",
		Summary:  "Real-time revenue, margin and churn tracking for a sales organization.",
		Description: "Executive dashboard aggregating revenue, margin, customer count and " +
			"churn into live KPIs, with new-customer events surfaced as they land.",
		Category:     "data",
		Technologies: []string{"Go", "PostgreSQL", "WebSockets"},
		GitHubURL:    "https://github.com/Bhardin04/analytics-dashboard",
		DemoURL:      "/demos/sales-dashboard",
		Featured:     true,
		Created:      time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:       3,
		Title:    "Payment Processing System",
		Summary:  "Staged payment application with confidence-scored invoice matching.",
		Description: "Processes inbound payments through validation, invoice matching, " +
			"confidence scoring and ledger application, isolating failures to the " +
			"individual payment.",
		Category:     "api",
		Technologies: []string{"Go", "PostgreSQL", "Redis"},
		GitHubURL:    "https://github.com/Bhardin04/payment-processing",
		DemoURL:      "/demos/payment-processing",
		Featured:     true,
		Created:      time.Date(2024, time.August, 20, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:       4,
		Title:    "NetSuite to SAP Data Pipeline",
		Summary:  "Batch ETL replacing manual re-keying between two systems of record.",
		Description: "Nightly extraction, transformation, validation and loading of " +
			"financial records between NetSuite and SAP, with per-stage progress " +
			"reporting and record-level error quarantine.",
		Category:     "data",
		Technologies: []string{"Go", "PostgreSQL"},
		GitHubURL:    "https://github.com/Bhardin04/netsuite-sap-pipeline",
		DemoURL:      "/demos/data-pipeline",
		Featured:     true,
		Created:      time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:       5,
		Title:    "Collections Management Dashboard",
		Summary:  "Aging buckets, DSO trends and collector performance in one view.",
		Description: "Receivables dashboard tracking days-sales-outstanding, aging " +
			"buckets and per-collector performance, fed from a change-data-capture " +
			"stream off the billing database.",
		Category:     "data",
		Technologies: []string{"Go", "PostgreSQL", "Redis"},
		GitHubURL:    "https://github.com/Bhardin04/collections-dashboard",
		DemoURL:      "/demos/collections-dashboard",
		Featured:     true,
		Created:      time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:       6,
		Title:    "Task Automation Suite",
		Summary:  "Scheduled jobs replacing recurring manual back-office work.",
		Description: "A small fleet of scheduled workers for report generation, file " +
			"shuffling and reconciliation chores, with retry policies and a run " +
			"history per job.",
		Category:     "automation",
		Technologies: []string{"Go", "PostgreSQL"},
		GitHubURL:    "https://github.com/Bhardin04/automation-suite",
		Created:      time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC),
	},
})
