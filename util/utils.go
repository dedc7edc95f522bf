package util

import "math/big"

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// bn254ScalarField is the scalar field of the BN254 curve, the field of the
// membership proof public inputs verified by the contract.
var bn254ScalarField, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// InScalarField reports whether v is a BN254 scalar field element, that is,
// 0 <= v < r.
func InScalarField(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(bn254ScalarField) < 0
}

