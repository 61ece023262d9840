package state

var (
	orderRecordPrefix   = []byte("payprotector/order/")
	auctionRecordPrefix = []byte("payprotector/auction/")
	custodyRecordPrefix = []byte("payprotector/custody/")
	accountRecordPrefix = []byte("payprotector/account/")
	orderSequenceKey    = []byte("payprotector/order-seq")
	genesisAppliedKey   = []byte("payprotector/genesis-applied")
	vaultSeed           = []byte("payprotector/escrow-vault")
)
