package sources

import "fmt"

// updaterAgent identifies this tool to external APIs.
const updaterAgent = "vault-updater/1.0"

// UserAgent returns the User-Agent string sent to external APIs, embedding
// the operator contact address polite pools ask for when one is configured.
func UserAgent(contact string) string {
	if contact == "" {
		return updaterAgent
	}
	return fmt.Sprintf("%s (mailto:%s)", updaterAgent, contact)
}
