package stub

import (
	"bytes"
	"encoding/binary"

	"github.com/mr-tron/base58"

	"solana-nft-picker/internal/solana"
)

// metadataAccountSize is the allocated size of a Metaplex metadata account.
// Unused trailing bytes are zero, which decodes as None for the optional tail.
const metadataAccountSize = 679

const metadataV1Key = 4

// MetadataAccountData encodes a Metaplex MetadataV1 account for mint.
// Name, symbol and uri are written as borsh strings.
func MetadataAccountData(mint, name, symbol, uri string) []byte {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		mintBytes = make([]byte, 32)
	}

	var b bytes.Buffer
	b.WriteByte(metadataV1Key)
	b.Write(make([]byte, 32)) // update authority
	b.Write(mintBytes)
	writeBorshString(&b, name)
	writeBorshString(&b, symbol)
	writeBorshString(&b, uri)
	_ = binary.Write(&b, binary.LittleEndian, uint16(500)) // seller fee basis points
	b.WriteByte(0)                                         // creators: None
	b.WriteByte(0)                                         // primary sale happened
	b.WriteByte(1)                                         // is mutable

	data := b.Bytes()
	if len(data) < metadataAccountSize {
		data = append(data, make([]byte, metadataAccountSize-len(data))...)
	}
	return data
}

// AddNftMetadata registers the metadata account of mint pointing at uri.
func (c *RPCClient) AddNftMetadata(mint, name, uri string) error {
	addr, err := solana.MetadataAddress(mint)
	if err != nil {
		return err
	}
	c.AddAccount(addr, &solana.AccountInfo{
		Owner: solana.TokenMetadataProgramID,
		Data:  MetadataAccountData(mint, name, "NFT", uri),
	})
	return nil
}

func writeBorshString(b *bytes.Buffer, s string) {
	_ = binary.Write(b, binary.LittleEndian, uint32(len(s)))
	b.WriteString(s)
}
