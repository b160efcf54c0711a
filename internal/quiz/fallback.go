package quiz

import "github.com/victornm/satsquest/internal/domain"

// DefaultFallbacks are served on a cache miss while the requested quiz is generated.
// They don't depend on the requested topic.
func DefaultFallbacks() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:    "default-bitcoin-quiz-v1",
			Topic: "Bitcoin Basics",
			Questions: []domain.Question{
				{Text: "What is Bitcoin's maximum supply?", Options: []string{"21 million", "100 million", "1 billion", "Unlimited"}, Correct: "21 million"},
				{Text: "Who is the creator of Bitcoin?", Options: []string{"Elon Musk", "Satoshi Nakamoto", "Vitalik Buterin", "Ada Lovelace"}, Correct: "Satoshi Nakamoto"},
				{Text: "What consensus mechanism does Bitcoin use?", Options: []string{"Proof of Stake", "Proof of Work", "Proof of Authority", "Proof of History"}, Correct: "Proof of Work"},
			},
		},
		{
			ID:    "default-lightning-quiz-v1",
			Topic: "Lightning Network Intro",
			Questions: []domain.Question{
				{Text: "What is the Lightning Network primarily for?", Options: []string{"Storing Bitcoin", "Fast, cheap Bitcoin txs", "Mining Bitcoin", "Issuing new tokens"}, Correct: "Fast, cheap Bitcoin txs"},
				{Text: "Lightning Network operates as a ___ layer.", Options: []string{"Base", "Second", "Third", "Sidechain"}, Correct: "Second"},
				{Text: "What are payment channels in Lightning?", Options: []string{"Email addresses", "Two-party ledgers", "Public blockchains", "Centralized servers"}, Correct: "Two-party ledgers"},
			},
		},
		{
			ID:    "default-crypto-concepts-v1",
			Topic: "General Crypto Concepts",
			Questions: []domain.Question{
				{Text: "What does 'DeFi' stand for?", Options: []string{"Decentralized Finance", "Digital Finance", "Default Finance", "Defined Finance"}, Correct: "Decentralized Finance"},
				{Text: "What is a 'private key' in crypto?", Options: []string{"A public address", "A password for an exchange", "A secret code to access funds", "A type of cryptocurrency"}, Correct: "A secret code to access funds"},
				{Text: "What is 'blockchain'?", Options: []string{"A type of coin", "A distributed ledger", "A crypto exchange", "A wallet software"}, Correct: "A distributed ledger"},
			},
		},
	}
}
