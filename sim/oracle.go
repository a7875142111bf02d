// Declares the external placement-oracle boundary. The oracle's internal
// model and training are outside this package: the simulator only supplies
// feature vectors, applies the returned tier decision, and reports outcomes.

package sim

// FeatureVector is the opaque numeric state handed to the placement oracle.
// Its layout is a contract between the FeatureSource and the Oracle; the
// simulator never interprets individual components.
type FeatureVector []float64

// FeatureSource builds feature vectors for oracle decisions from the request
// plus the simulator-visible context (prior serving tier and capacity usage
// ratios). Implemented by an external feature-extraction collaborator.
type FeatureSource interface {
	Features(req *Request, priorTier Tier, midUsageRatio, fastUsageRatio float64) FeatureVector
}

// Oracle is the external placement decision service.
//
// Decide returns the tier that should serve the request described by the
// feature vector. Observe is a fire-and-forget outcome report: the measured
// latency in seconds, the follow-up feature vector, and whether the episode
// is finished. Implementations must not be inspected by the core.
type Oracle interface {
	Decide(state FeatureVector) Tier
	Observe(latencySeconds float64, next FeatureVector, done bool)
}
