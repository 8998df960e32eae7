// Package identity derives stable anonymous commenter identities from
// request signals without ever persisting a raw IP or User-Agent.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Signals are the raw inputs an identity is derived from. IPAddress and
// UserAgent come from the request; SessionID and LocalStorageID are
// client-supplied (per tab and per browser respectively).
type Signals struct {
	IPAddress      string
	UserAgent      string
	SessionID      string
	LocalStorageID string
}

// Identity is the resolved anonymous commenter identity. IdentityHash is
// the primary key for all abuse tracking.
type Identity struct {
	IdentityHash   string
	IPHash         string
	UserAgentHash  string
	SessionID      string
	LocalStorageID string
}

// Resolver hashes identity signals with a process-wide secret. Rotating
// the secret orphans every existing identity record, so it is loaded
// once at startup and never changed at runtime.
type Resolver struct {
	secret string
}

// NewResolver creates a Resolver keyed with the given secret
func NewResolver(secret string) (*Resolver, error) {
	if secret == "" {
		return nil, fmt.Errorf("identity hash secret must not be empty")
	}
	return &Resolver{secret: secret}, nil
}

func (r *Resolver) hash(input string) string {
	sum := sha256.Sum256([]byte(input + ":" + r.secret))
	return hex.EncodeToString(sum[:])
}

// HashIP hashes an IP address. IPv4-mapped IPv6 addresses are normalized
// so ::ffff:1.2.3.4 and 1.2.3.4 resolve to the same identity.
func (r *Resolver) HashIP(ipAddress string) string {
	if ipAddress == "" {
		return r.hash("unknown-ip")
	}
	return r.hash(strings.TrimPrefix(ipAddress, "::ffff:"))
}

// HashUserAgent hashes a User-Agent string
func (r *Resolver) HashUserAgent(userAgent string) string {
	if userAgent == "" {
		return r.hash("unknown-ua")
	}
	return r.hash(userAgent)
}

// Resolve computes the composite identity from all available signals.
// Missing signals are skipped rather than failing the request; fewer
// signals just means a weaker, less stable identity. The result is
// deterministic for a given signal tuple.
func (r *Resolver) Resolve(signals Signals) Identity {
	ipHash := r.HashIP(signals.IPAddress)
	uaHash := r.HashUserAgent(signals.UserAgent)

	var components []string
	if signals.IPAddress != "" {
		components = append(components, ipHash)
	}
	if signals.UserAgent != "" {
		components = append(components, uaHash)
	}
	if signals.SessionID != "" {
		components = append(components, signals.SessionID)
	}
	if signals.LocalStorageID != "" {
		components = append(components, signals.LocalStorageID)
	}

	// With zero signals there is nothing to anchor on; a random one-off
	// identity keeps the request working without polluting real records.
	if len(components) == 0 {
		components = append(components, fmt.Sprintf("anonymous-%d", time.Now().UnixNano()))
	}

	return Identity{
		IdentityHash:   r.hash(strings.Join(components, "::")),
		IPHash:         ipHash,
		UserAgentHash:  uaHash,
		SessionID:      signals.SessionID,
		LocalStorageID: signals.LocalStorageID,
	}
}

// BasicHash computes a coarser identity from IP and User-Agent only.
// Session and localStorage IDs reset per browser, so this hash is what
// ban-evasion checks key on.
func (r *Resolver) BasicHash(signals Signals) string {
	return r.Resolve(Signals{
		IPAddress: signals.IPAddress,
		UserAgent: signals.UserAgent,
	}).IdentityHash
}

// Confidence scores how reliable an identity is, 0 to 100. More
// independent signals means a harder-to-spoof identity.
func Confidence(signals Signals) int {
	confidence := 0
	if signals.IPAddress != "" {
		confidence += 30
	}
	if signals.UserAgent != "" {
		confidence += 20
	}
	if signals.SessionID != "" {
		confidence += 20
	}
	if signals.LocalStorageID != "" {
		confidence += 30
	}
	return confidence
}
