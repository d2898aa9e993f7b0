package ingest

import (
	"context"
	"fmt"
	"time"

	domingest "github.com/koralov/raggate/internal/domain/ingest"
)

// Seed indexes the built-in corpus. Used at startup in mock mode so
// the search surface has data to serve without an external ingestion
// run.
func (s *Service) Seed(ctx context.Context) error {
	results := s.Ingest(ctx, SeedCorpus())
	for _, r := range results {
		if r.Status() == domingest.StatusError {
			return fmt.Errorf("seed %s: %w", r.ID(), r.Err())
		}
	}
	return nil
}

// SeedCorpus returns the built-in enterprise document sample set.
func SeedCorpus() []Input {
	return []Input{
		{
			ID:         "seed-mfa",
			Title:      "Multi-Factor Authentication Best Practices",
			Content:    "MFA is a critical security mechanism requiring multiple verification methods. Implementation includes hardware keys, backup codes, regular audits, and user training. MFA reduces unauthorized access by over 99%.",
			Category:   "security",
			Department: "cybersecurity",
			Tags:       []string{"mfa", "security"},
			Author:     "Security Team",
			Date:       seedDate(2024, 10, 22),
			SourceURL:  "https://docs.company.com/security/mfa",
		},
		{
			ID:         "seed-encryption",
			Title:      "Encryption Strategies for Data Protection",
			Content:    "Enterprise encryption uses AES-256 for data at rest and TLS 1.3 for transit. Key management via HSM with automatic rotation. Critical for GDPR and PCI-DSS compliance.",
			Category:   "security",
			Department: "data-security",
			Tags:       []string{"encryption", "security"},
			Author:     "Security Team",
			Date:       seedDate(2024, 10, 20),
			SourceURL:  "https://docs.company.com/security/encryption",
		},
		{
			ID:         "seed-incidents",
			Title:      "Security Incident Response Procedures",
			Content:    "Incident response procedures include detection, classification, isolation of affected systems, forensic analysis, recovery, and post-incident review. Response time SLAs: Critical 15min, High 1hr, Medium 4hrs.",
			Category:   "security",
			Department: "incident-response",
			Tags:       []string{"incident", "security"},
			Author:     "Incident Response Team",
			Date:       seedDate(2024, 10, 19),
			SourceURL:  "https://docs.company.com/security/incidents",
		},
		{
			ID:         "seed-support-platform",
			Title:      "Customer Support Platform Features",
			Content:    "Our support platform handles multi-channel ticket management with intelligent routing, AI-powered automation, real-time chat with video integration, and comprehensive knowledge base. First response 5 minutes, resolution 24 hours.",
			Category:   "product",
			Department: "customer-success",
			Tags:       []string{"support", "platform"},
			Author:     "Product Team",
			Date:       seedDate(2024, 10, 23),
			SourceURL:  "https://docs.company.com/support/platform",
		},
		{
			ID:         "seed-support-practices",
			Title:      "Customer Support Best Practices",
			Content:    "Support excellence requires 15-minute response times, professional friendly tone, problem-solving approach with escalation only when necessary, continuous training, and quality metrics targeting 90% CSAT.",
			Category:   "process",
			Department: "customer-success",
			Tags:       []string{"support", "training"},
			Author:     "Training Team",
			Date:       seedDate(2024, 10, 21),
			SourceURL:  "https://docs.company.com/support/best-practices",
		},
		{
			ID:         "seed-hybrid-search",
			Title:      "AI-Powered Hybrid Search Implementation",
			Content:    "Hybrid search combines BM25 keyword search with vector semantic search using transformers. Reciprocal Rank Fusion merges results. Cross-encoder reranking provides final ordering. NDCG@10 target 0.75+.",
			Category:   "technology",
			Department: "engineering",
			Tags:       []string{"ai", "search"},
			Author:     "AI Team",
			Date:       seedDate(2024, 10, 22),
			SourceURL:  "https://docs.company.com/ai/hybrid-search",
		},
		{
			ID:         "seed-nlp",
			Title:      "Natural Language Processing for Enterprises",
			Content:    "NLP techniques include tokenization, NER, POS tagging, sentiment analysis, and topic modeling. Applications: auto-classification, information extraction, summarization, duplicate detection, compliance analysis.",
			Category:   "technology",
			Department: "data-science",
			Tags:       []string{"nlp", "ai"},
			Author:     "Data Science Team",
			Date:       seedDate(2024, 10, 20),
			SourceURL:  "https://docs.company.com/ai/nlp",
		},
		{
			ID:         "seed-cloud-infra",
			Title:      "Cloud Infrastructure Architecture",
			Content:    "Cloud architecture requires high availability, scalability, security, cost optimization, and disaster recovery. Components: load balancing, auto-scaling, containerization, microservices, VPC, storage solutions, backups.",
			Category:   "infrastructure",
			Department: "platform-engineering",
			Tags:       []string{"cloud", "devops"},
			Author:     "Infrastructure Team",
			Date:       seedDate(2024, 10, 21),
			SourceURL:  "https://docs.company.com/infra/architecture",
		},
		{
			ID:         "seed-kubernetes",
			Title:      "Kubernetes Deployment Strategies",
			Content:    "K8s deployment strategies include rolling deployments, blue-green, canary, and shadow deployments. Resource management via requests/limits, QoS classes, horizontal pod autoscaling, and GitOps workflows.",
			Category:   "infrastructure",
			Department: "platform-engineering",
			Tags:       []string{"kubernetes", "devops"},
			Author:     "Platform Team",
			Date:       seedDate(2024, 10, 19),
			SourceURL:  "https://docs.company.com/infra/kubernetes",
		},
		{
			ID:         "seed-remote-work",
			Title:      "Remote Work Policy Guidelines",
			Content:    "Remote work available for most roles with manager approval. Requirements: regular hours 9-5, VPN mandatory, MFA required, professional appearance on calls, secure workspace, reliable internet 25Mbps+. Daily standups and weekly meetings.",
			Category:   "policy",
			Department: "human-resources",
			Tags:       []string{"remote", "policy"},
			Author:     "HR Department",
			Date:       seedDate(2024, 10, 15),
			SourceURL:  "https://docs.company.com/policies/remote-work",
		},
	}
}

func seedDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
