// Package tests holds fixtures shared by package tests: ABI documents and
// canned log payloads shaped like real compiler and node output.
package tests

// Erc20AbiJson is the standard EIP-20 interface as emitted by solc.
const Erc20AbiJson = `[
  {"type":"function","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
  {"type":"function","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
  {"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
  {"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"allowance","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"Approval","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false}
]`

// OverloadedAbiJson declares two functions sharing the name "getValue" and
// two named "transfer" with different parameter lists, mirroring contracts
// that lean on Solidity overloading.
const OverloadedAbiJson = `[
  {"type":"function","name":"getValue","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"getValue","inputs":[{"name":"flag","type":"bool"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"}
]`

// DuplicateSignatureAbiJson repeats an identical canonical signature, which
// must be rejected at parse time.
const DuplicateSignatureAbiJson = `[
  {"type":"function","name":"ping","inputs":[{"name":"x","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"ping","inputs":[{"name":"y","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}
]`

// TupleAbiJson exercises tuple parameters with nested components.
const TupleAbiJson = `[
  {"type":"function","name":"submitOrder","inputs":[{"name":"order","type":"tuple","components":[{"name":"maker","type":"address"},{"name":"amount","type":"uint256"},{"name":"legs","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"qty","type":"uint128"}]}]}],"outputs":[{"name":"orderId","type":"bytes32"}],"stateMutability":"nonpayable"},
  {"type":"event","name":"OrderSubmitted","inputs":[{"name":"orderId","type":"bytes32","indexed":true},{"name":"maker","type":"address","indexed":true},{"name":"uri","type":"string","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false}
]`

// ConstructorAbiJson carries a payable constructor for deployment tests.
const ConstructorAbiJson = `[
  {"type":"constructor","inputs":[{"name":"initialSupply","type":"uint256"},{"name":"tokenName","type":"string"}],"stateMutability":"payable"},
  {"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`
