package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	tokenMetadataKey = ethcrypto.Keccak256([]byte("token/metadata"))
	tokenOwnerKey    = ethcrypto.Keccak256([]byte("token/owner"))
	tokenSupplyKey   = ethcrypto.Keccak256([]byte("token/supply"))
	balancePrefix    = []byte("token/balance/")
	allowancePrefix  = []byte("token/allowance/")

	stakeholderCountKey = ethcrypto.Keccak256([]byte("staking/stakeholders/count"))
	stakeholderPrefix   = []byte("staking/stakeholders/index/")
	stakeCountPrefix    = []byte("staking/stakes/count/")
	stakeSlotPrefix     = []byte("staking/stakes/slot/")

	fingerprintKey = ethcrypto.Keccak256([]byte("state/fingerprint"))
	sequenceKey    = ethcrypto.Keccak256([]byte("state/sequence"))
)

func namespacedKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr [20]byte) []byte {
	return namespacedKey(balancePrefix, addr[:])
}

func allowanceKey(owner, spender [20]byte) []byte {
	return namespacedKey(allowancePrefix, owner[:], spender[:])
}

func stakeholderKey(addr [20]byte) []byte {
	return namespacedKey(stakeholderPrefix, addr[:])
}

func stakeCountKey(addr [20]byte) []byte {
	return namespacedKey(stakeCountPrefix, addr[:])
}

func stakeSlotKey(addr [20]byte, slot uint64) []byte {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], slot)
	return namespacedKey(stakeSlotPrefix, addr[:], idx[:])
}
