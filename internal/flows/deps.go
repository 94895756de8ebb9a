package flows

// Deps groups flow dependency sets. The root engine builds the static parts
// once and fills per-call fields before delegating.
type Deps struct {
	Refresh RefreshDeps
	Verify  VerifyDeps
}
