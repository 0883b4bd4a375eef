package types

// PollOutcome is the final tally claimed by a coordinator, with the data
// needed to check it against the last accepted tally commitment.
//
// TallyResultProofs[i] is the inclusion path of TallyResults[i] in the tally
// result tree: one entry per level, each holding the VoteOptionTreeArity-1
// siblings of the node in level order.
type PollOutcome struct {
	TallyResults         []uint32        `json:"tallyResults" cbor:"0,keyasint"`
	TallyResultProofs    [][][]HashBytes `json:"tallyResultProofs" cbor:"1,keyasint"`
	TallyResultSalt      HashBytes       `json:"tallyResultSalt" cbor:"2,keyasint"`
	TotalSpent           HashBytes       `json:"totalSpent" cbor:"3,keyasint"`
	TotalSpentSalt       HashBytes       `json:"totalSpentSalt" cbor:"4,keyasint"`
	SpentVotesHash       HashBytes       `json:"spentVotesHash" cbor:"5,keyasint"`
	NewResultsCommitment HashBytes       `json:"newResultsCommitment" cbor:"6,keyasint"`
}
