// Package metadata handles track metadata URIs. The engine treats the URI as
// an opaque string once stored; this package only validates the shape at the
// façade boundary and resolves display URLs for gateways.
package metadata

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultIPFSGateway serves ipfs:// content over HTTPS for display surfaces.
const DefaultIPFSGateway = "https://ipfs.io"

// ValidateURI accepts ipfs://, ar:// and http(s):// URIs with a non-empty
// host or content identifier.
func ValidateURI(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("metadata URI is empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed metadata URI: %w", err)
	}

	switch parsed.Scheme {
	case "ipfs", "ar":
		if parsed.Host == "" && parsed.Opaque == "" && strings.Trim(parsed.Path, "/") == "" {
			return fmt.Errorf("metadata URI %q has no content identifier", raw)
		}
		return nil
	case "http", "https":
		if parsed.Host == "" {
			return fmt.Errorf("metadata URI %q has no host", raw)
		}
		return nil
	default:
		return fmt.Errorf("unsupported metadata URI scheme %q", parsed.Scheme)
	}
}

// GatewayURL rewrites an ipfs:// URI to an HTTPS gateway URL. Other schemes
// pass through unchanged; ar:// resolves via arweave.net.
func GatewayURL(raw, gateway string) string {
	if gateway == "" {
		gateway = DefaultIPFSGateway
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	switch parsed.Scheme {
	case "ipfs":
		cid := parsed.Host
		if cid == "" {
			cid = parsed.Opaque
		}
		path := strings.TrimPrefix(parsed.Path, "/")
		if path != "" {
			return fmt.Sprintf("%s/ipfs/%s/%s", strings.TrimSuffix(gateway, "/"), cid, path)
		}
		return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(gateway, "/"), cid)
	case "ar":
		id := parsed.Host
		if id == "" {
			id = parsed.Opaque
		}
		return "https://arweave.net/" + id
	default:
		return raw
	}
}
