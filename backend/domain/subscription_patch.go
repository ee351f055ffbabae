package domain

// ApplyPatch applies a partial update to Subscription.
// Zero values in patch (""/0) are treated as "not set".
// AutoUpdateInterval is excluded: 0 there is a meaningful value
// (disable auto update), callers set it explicitly.
func (s Subscription) ApplyPatch(patch Subscription) Subscription {
	if patch.Name != "" {
		s.Name = patch.Name
	}
	if patch.SourceURL != "" {
		s.SourceURL = patch.SourceURL
	}
	if patch.Payload != "" {
		s.Payload = patch.Payload
	}
	return s
}
