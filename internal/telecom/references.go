// Package telecom holds the telecom reference table and the keyword matcher
// that picks SQL query templates and a conversation topic for a message.
package telecom

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Topic is a reference category name.
type Topic string

const (
	TopicBilling         Topic = "billing"
	TopicNetworkStatus   Topic = "network_status"
	TopicCustomerService Topic = "customer_service"
)

// Category is one entry of the reference table.
type Category struct {
	Topic    Topic    `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
	Queries  []string `yaml:"queries"`
}

// OutageTemplates are the three outage lookups, chosen by SelectOutageTemplate.
type OutageTemplates struct {
	PostalCode string `yaml:"postalCode"`
	Region     string `yaml:"region"`
	Address    string `yaml:"address"`
}

type Outage struct {
	Keywords       []string        `yaml:"keywords"`
	RegionKeywords []string        `yaml:"regionKeywords"`
	Templates      OutageTemplates `yaml:"templates"`
}

// ReferenceSet is the read-only table the matcher works from. Category order
// is significant: matches and topic inference follow it.
type ReferenceSet struct {
	SystemPrompt string     `yaml:"systemPrompt"`
	Categories   []Category `yaml:"categories"`
	Outage       Outage     `yaml:"outage"`
	Fallback     string     `yaml:"fallback"`
}

const systemPrompt = `You are a telecom customer service AI assistant. You can help with:
- Billing inquiries and payment issues
- Network status and coverage information
- Customer service and support tickets
- General telecom-related questions

Please stick to telecom-related queries. If the question is outside this scope,
guide the user back to telecom-related topics.
`

// DefaultReferenceSet returns the built-in table. Each call returns a fresh copy.
func DefaultReferenceSet() *ReferenceSet {
	return &ReferenceSet{
		SystemPrompt: systemPrompt,
		Categories: []Category{
			{
				Topic:    TopicBilling,
				Keywords: []string{"bill", "payment", "charge", "invoice", "plan", "data usage", "balance"},
				Queries: []string{
					"SELECT amount, due_date, status FROM billing_records WHERE customer_id = ? ORDER BY bill_date DESC LIMIT 1",
					"SELECT plan_name, data_limit, validity FROM customer_plans WHERE customer_id = ?",
					"SELECT payment_date, amount FROM payment_history WHERE customer_id = ? AND payment_date >= DATE_SUB(NOW(), INTERVAL 3 MONTH)",
					"SELECT remaining_data, validity_end FROM data_usage WHERE customer_id = ? AND status = 'active'",
				},
			},
			{
				Topic:    TopicNetworkStatus,
				Keywords: []string{"network", "coverage", "signal", "outage", "down", "maintenance", "connection"},
				Queries: []string{
					"SELECT status, affected_area, estimated_resolution FROM network_outages WHERE region = ? AND status != 'resolved'",
					"SELECT signal_strength, tower_id FROM network_coverage WHERE postal_code = ?",
					"SELECT maintenance_type, start_time, end_time FROM planned_maintenance WHERE date = CURRENT_DATE",
					"SELECT issue_type, affected_services FROM service_status WHERE region = ? AND status = 'active'",
				},
			},
			{
				Topic:    TopicCustomerService,
				Keywords: []string{"complaint", "ticket", "support", "help", "issue", "resolution", "service request"},
				Queries: []string{
					"SELECT ticket_id, status, priority FROM support_tickets WHERE customer_id = ? ORDER BY created_date DESC",
					"SELECT complaint_type, resolution_status, sla_time FROM complaints WHERE ticket_id = ?",
					"SELECT AVG(resolution_time) as avg_time FROM service_requests WHERE priority = ? AND created_date >= DATE_SUB(NOW(), INTERVAL 1 MONTH)",
					"SELECT status_updates, assigned_team FROM ticket_tracking WHERE ticket_id = ?",
				},
			},
		},
		Outage: Outage{
			Keywords:       []string{"outage", "network", "down", "service"},
			RegionKeywords: []string{"downtown", "city", "district", "area", "region"},
			Templates: OutageTemplates{
				PostalCode: "SELECT status, affected_area, estimated_resolution FROM network_outages WHERE postal_code = ? AND status != 'resolved'",
				Region:     "SELECT status, affected_area, estimated_resolution FROM network_outages WHERE region = ? AND status != 'resolved'",
				Address:    "SELECT status, affected_area, estimated_resolution FROM network_outages WHERE address LIKE ? AND status != 'resolved'",
			},
		},
		Fallback: "No predefined queries match your question. Try asking about billing, network status, or customer service.",
	}
}

// LoadReferenceSet reads a YAML reference table. Keywords are lower-cased.
func LoadReferenceSet(path string) (*ReferenceSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}

	var rs ReferenceSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse reference file %s: %w", path, err)
	}
	rs.normalize()
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}
	return &rs, nil
}

// Marshal renders the table as YAML, in the format LoadReferenceSet reads.
func (rs *ReferenceSet) Marshal() ([]byte, error) {
	return yaml.Marshal(rs)
}

// Validate reports the first structural problem of the table.
func (rs *ReferenceSet) Validate() error {
	if len(rs.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	seen := make(map[Topic]bool, len(rs.Categories))
	for i, c := range rs.Categories {
		if c.Topic == "" {
			return fmt.Errorf("category %d: topic is required", i)
		}
		if seen[c.Topic] {
			return fmt.Errorf("category %q declared twice", c.Topic)
		}
		seen[c.Topic] = true
		if len(c.Keywords) == 0 {
			return fmt.Errorf("category %q: keywords are required", c.Topic)
		}
	}
	t := rs.Outage.Templates
	if t.PostalCode == "" || t.Region == "" || t.Address == "" {
		return fmt.Errorf("outage: postalCode, region and address templates are required")
	}
	if rs.Fallback == "" {
		return fmt.Errorf("fallback notice is required")
	}
	return nil
}

func (rs *ReferenceSet) normalize() {
	for i := range rs.Categories {
		rs.Categories[i].Keywords = lowerAll(rs.Categories[i].Keywords)
	}
	rs.Outage.Keywords = lowerAll(rs.Outage.Keywords)
	rs.Outage.RegionKeywords = lowerAll(rs.Outage.RegionKeywords)
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
