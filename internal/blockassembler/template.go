// Package blockassembler turns a decoded getblocktemplate response into a
// work.Work ready for hashing: it builds the coinbase transaction (BIP-34
// height, optional SegWit commitment, operator signature), folds the
// transaction Merkle tree, and packs the 80-byte header and target.
package blockassembler

// Transaction is one entry of getblocktemplate's "transactions" array.
type Transaction struct {
	Data    string `json:"data"`
	TxID    string `json:"txid"`
	Hash    string `json:"hash"`
	Depends []int  `json:"depends"`
}

// CoinbaseTxn is the template-supplied coinbase, present on servers that
// advertise the "coinbasetxn" capability instead of leaving assembly to us.
type CoinbaseTxn struct {
	Data string `json:"data"`
}

// Template is the decoded result object of a getblocktemplate RPC call.
type Template struct {
	Version           uint32            `json:"version"`
	PreviousBlockHash string            `json:"previousblockhash"`
	Transactions      []Transaction     `json:"transactions"`
	CoinbaseAux       map[string]string `json:"coinbaseaux"`
	CoinbaseValue     uint64            `json:"coinbasevalue"`
	CoinbaseTxn       *CoinbaseTxn      `json:"coinbasetxn"`
	Target            string            `json:"target"`
	MinTime           uint32            `json:"mintime"`
	Mutable           []string          `json:"mutable"`
	NonceRange        string            `json:"noncerange"`
	SigOpLimit        uint32            `json:"sigoplimit"`
	SizeLimit         uint32            `json:"sizelimit"`
	CurTime           uint32            `json:"curtime"`
	Bits              string            `json:"bits"`
	Height            uint32            `json:"height"`
	Rules             []string          `json:"rules"`
	Capabilities      []string          `json:"capabilities"`
	LongPollID        string            `json:"longpollid"`
	LongPollURI       string            `json:"longpolluri"`
	WorkID            string            `json:"workid"`
}

// SegWitActive reports whether the template's deployment rules include
// SegWit, under either the plain or the mandatory-prefixed spelling.
func (t *Template) SegWitActive() bool {
	for _, r := range t.Rules {
		if r == "segwit" || r == "!segwit" {
			return true
		}
	}
	return false
}

func (t *Template) hasMutableFlag(name string) bool {
	for _, m := range t.Mutable {
		if m == name {
			return true
		}
	}
	return false
}

// CoinbaseAppendAllowed reports whether the template permits extending the
// coinbase scriptSig ("coinbase/append" in "mutable").
func (t *Template) CoinbaseAppendAllowed() bool {
	return t.hasMutableFlag("coinbase/append")
}

// SubmitCoinbaseOnly reports whether only the coinbase transaction need be
// returned on submit ("submit/coinbase" in "mutable").
func (t *Template) SubmitCoinbaseOnly() bool {
	return t.hasMutableFlag("submit/coinbase")
}
