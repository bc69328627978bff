package rediskey

import "fmt"

// Key namespaces shared by the API and the worker.
const (
	SequencePrefix         = "seq"
	DonationSequencePrefix = "seq:donation"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildDonationSequenceKey returns "seq:donation:{prefix}:{yymmdd}"
func BuildDonationSequenceKey(prefix, day string) string {
	return NamespaceKey(DonationSequencePrefix, NamespaceKey(prefix, day))
}
