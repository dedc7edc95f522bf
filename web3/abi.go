package web3

// relayContractABI is the subset of the voting contract ABI used by the
// relay: casting a ballot with its membership proof and adding members to a
// group.
const relayContractABI = `[
  {
    "inputs": [
      {"internalType": "bytes32", "name": "review", "type": "bytes32"},
      {"internalType": "uint256", "name": "nullifierHash", "type": "uint256"},
      {"internalType": "uint256", "name": "groupId", "type": "uint256"},
      {"internalType": "uint256[8]", "name": "proof", "type": "uint256[8]"}
    ],
    "name": "postReview",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "groupId", "type": "uint256"},
      {"internalType": "uint256", "name": "identityCommitment", "type": "uint256"}
    ],
    "name": "addMember",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`
