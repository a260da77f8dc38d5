package bulletproofs

const (
	BULLETPROOF_DOMAIN_TAG  = "zkp_bulletproof_transcript"
	GENERATORS_DOMAIN_TAG   = "zkp_bulletproof_generators"
	BLINDING_DOMAIN_TAG     = "zkp_bulletproof_blinding"
	CIRCUIT_HASH_DOMAIN_TAG = "zkp_bulletproof_circuit_hash"
	BATCH_WEIGHT_DOMAIN_TAG = "zkp_bulletproof_batch"
)

const (
	// CircuitVersion is the version number carried in the header of
	// circuit and circuit-assignment binary encodings.
	CircuitVersion = 1

	// MaxDepth bounds the number of inner-product rounds. Depth 60 lets a
	// verifier process an aggregate of 2^25 64-bit proofs.
	MaxDepth = 60

	// MaxProof is the byte size of a hypothetical depth-31 rangeproof and
	// an upper bound on any proof this package accepts.
	MaxProof = 160 + 66*32 + 7

	// MaxCircuit caps the memory a serialized circuit may claim at decode
	// time.
	MaxCircuit = 1024 * 1024 * 1024
)
