package identity

import "strings"

// arn holds the parsed fields of an AWS-style ARN string of the form
// arn:partition:service:region:account_id:resource_id.
type arn struct {
	Partition  string
	Service    string
	Region     string
	AccountID  string
	ResourceID string
}

// parseARN splits an ARN into at most six colon-delimited fields, mirroring
// the teacher's own ARN-splitting technique for thing ARNs (resource_id may
// itself contain colons, so the split is capped, not unbounded).
func parseARN(s string) (arn, error) {
	parts := strings.SplitN(s, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return arn{}, &ConfigInvalidError{baseError{message: "malformed thing ARN: " + s}}
	}
	return arn{
		Partition:  parts[1],
		Service:    parts[2],
		Region:     parts[3],
		AccountID:  parts[4],
		ResourceID: parts[5],
	}, nil
}
