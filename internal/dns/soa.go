package dns

// NewPlaceholderSOA synthesizes the single-SOA negative placeholder used for
// local same-name/different-type answers: mDNS has no NXDOMAIN for names we
// own, so a lone SOA on the queried name signals "name exists, no such type".
// The MNAME is the queried name itself and the TTL is the LLMNR default.
func NewPlaceholderSOA(name string) *ResourceRecord {
	return &ResourceRecord{
		Key: NewKey(ClassIN, TypeSOA, name),
		TTL: LLMNRDefaultTTL,
		Data: SOAData{
			MName:   NormalizeName(name),
			RName:   "root." + NormalizeName(name),
			Serial:  1,
			Refresh: 3600,
			Retry:   600,
			Expire:  86400,
			Minimum: LLMNRDefaultTTL,
		},
	}
}
