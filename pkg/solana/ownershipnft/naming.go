package ownershipnft

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultSymbol          = "OWNER-TEST-NFT"
	DefaultNamePrefix      = "Test #"
	DefaultBaseMetadataURL = "http://localhost:3000"

	metadataPath = "/api/metadata/test/"
)

// TokenName renders the token name the program writes for a ticket.
func TokenName(prefix string, ticketID [TicketIDSize]byte) string {
	return prefix + uuid.UUID(ticketID).String()
}

// TokenURI renders the metadata URI the program writes for a ticket.
func TokenURI(baseURL string, ticketID [TicketIDSize]byte) string {
	return strings.TrimSuffix(baseURL, "/") + metadataPath + uuid.UUID(ticketID).String()
}
