package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/validator"
	"github.com/NethermindEth/starksim/vm"
	"github.com/NethermindEth/starksim/vm/native"
	"github.com/holiman/uint256"
)

// genesisMaxSteps bounds every constructor and function call made while
// building the genesis state.
const genesisMaxSteps = 10_000_000

type GenesisConfig struct {
	Classes           []string                          `json:"classes" validate:"dive,required"`   // names of native contracts to declare
	Contracts         map[felt.Felt]GenesisContractData `json:"contracts" validate:"dive"`          // address -> {class, constructorArgs}
	FunctionCalls     []FunctionCall                    `json:"function_calls" validate:"dive"`     // list of functionCalls to Call()
	BootstrapAccounts []Account                         `json:"bootstrap_accounts" validate:"dive"` // accounts to deploy and prefund
}

// Account is deployed with the native account class and funded on every fee token.
type Account struct {
	Address   felt.Felt `json:"address" validate:"required"`
	PublicKey felt.Felt `json:"public_key" validate:"required"`
	// Balance is a decimal amount credited on each fee token.
	Balance string `json:"balance" validate:"omitempty,numeric"`
}

func Read(path string) (*GenesisConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config GenesisConfig
	if err = config.UnmarshalJSON(file); err != nil {
		return nil, err
	}
	return &config, config.Validate()
}

func (g *GenesisConfig) UnmarshalJSON(data []byte) error {
	var aux struct {
		Classes           []string                       `json:"classes"`
		Contracts         map[string]GenesisContractData `json:"contracts"`
		FunctionCalls     []FunctionCall                 `json:"function_calls"`
		BootstrapAccounts []Account                      `json:"bootstrap_accounts"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	g.Classes = aux.Classes
	g.FunctionCalls = aux.FunctionCalls
	g.BootstrapAccounts = aux.BootstrapAccounts
	g.Contracts = make(map[felt.Felt]GenesisContractData, len(aux.Contracts))
	for address, contract := range aux.Contracts {
		key, err := new(felt.Felt).SetString(address)
		if err != nil {
			return err
		}
		g.Contracts[*key] = contract
	}
	return nil
}

// GenesisContractData deploys a contract of the named native class.
type GenesisContractData struct {
	Class           string      `json:"class" validate:"required"`
	ConstructorArgs []felt.Felt `json:"constructor_args"`
}

type FunctionCall struct {
	ContractAddress    felt.Felt   `json:"contract_address" validate:"required"`
	EntryPointSelector felt.Felt   `json:"entry_point_selector" validate:"required"`
	Calldata           []felt.Felt `json:"calldata"`
}

func (g *GenesisConfig) Validate() error {
	return validator.Validator().Struct(g)
}

// GenesisStateDiff builds the genesis state on top of base and returns it as
// a diff together with the declared classes. base is not modified.
func GenesisStateDiff( //nolint:funlen
	config *GenesisConfig,
	engine *native.Engine,
	blockCtx *vm.BlockContext,
	base core.StateReadWriter,
) (*core.StateDiff, map[felt.Felt]core.Class, error) {
	genesisState := core.NewTransactionalState(base)
	defer genesisState.Discard()

	classHashes := make(map[string]*felt.Felt, len(config.Classes))
	declare := func(name string) (*felt.Felt, error) {
		if classHash, ok := classHashes[name]; ok {
			return classHash, nil
		}
		contract, ok := engine.Contract(name)
		if !ok {
			return nil, fmt.Errorf("unknown native contract %q", name)
		}
		class := contract.Class()
		classHash, err := class.Hash()
		if err != nil {
			return nil, fmt.Errorf("calculate class hash: %v", err)
		}
		compiledClassHash, err := class.Compiled.Hash()
		if err != nil {
			return nil, fmt.Errorf("calculate compiled class hash: %v", err)
		}
		if err = genesisState.SetContractClass(classHash, class); err != nil && !errors.Is(err, core.ErrClassAlreadyDeclared) {
			return nil, fmt.Errorf("declare class: %v", err)
		}
		if err = genesisState.SetCompiledClassHash(classHash, compiledClassHash); err != nil {
			return nil, fmt.Errorf("set compiled class hash: %v", err)
		}
		classHashes[name] = classHash
		return classHash, nil
	}

	for _, name := range config.Classes {
		if _, err := declare(name); err != nil {
			return nil, nil, err
		}
	}

	// The constructor entrypoint for cairo contracts
	constructorSelector := crypto.Selector("constructor")
	txCtx := &vm.TxContext{
		Hash:    &felt.Zero,
		Version: new(core.TransactionVersion),
		Nonce:   &felt.Zero,
		MaxFee:  &felt.Zero,
		ChainID: blockCtx.ChainID,
		Header:  blockCtx.Header,
	}
	call := func(callInfo *vm.CallInfo) error {
		callInfo.CallerAddress = &felt.Zero
		_, err := engine.Call(callInfo, genesisState, vm.NewStepBudget(genesisMaxSteps), txCtx)
		return err
	}
	deploy := func(address *felt.Felt, className string, constructorArgs []*felt.Felt) error {
		classHash, err := declare(className)
		if err != nil {
			return err
		}
		if err = genesisState.SetClassHash(address, classHash); err != nil {
			return fmt.Errorf("set class hash: %v", err)
		}
		// Call the constructors
		if err = call(&vm.CallInfo{
			ContractAddress: address,
			ClassHash:       classHash,
			Selector:        constructorSelector,
			Calldata:        constructorArgs,
			EntryPointType:  vm.Constructor,
		}); err != nil {
			return fmt.Errorf("execute constructor of %s: %w", address, err)
		}
		return nil
	}

	var err error
	for _, address := range sortedAddresses(config.Contracts) {
		contractData := config.Contracts[address]
		if err = deploy(&address, contractData.Class, feltPointers(contractData.ConstructorArgs)); err != nil {
			return nil, nil, err
		}
	}

	for _, account := range config.BootstrapAccounts {
		if err = deploy(&account.Address, native.Account().Name, []*felt.Felt{&account.PublicKey}); err != nil {
			return nil, nil, err
		}
		if account.Balance == "" {
			continue
		}
		balance, err := uint256.FromDecimal(account.Balance)
		if err != nil {
			return nil, nil, fmt.Errorf("account %s balance: %v", &account.Address, err)
		}
		for _, token := range []*felt.Felt{blockCtx.FeeTokens.EthAddress, blockCtx.FeeTokens.StrkAddress} {
			if token == nil {
				continue
			}
			if err = vm.WriteBalance(genesisState, token, &account.Address, balance); err != nil {
				return nil, nil, fmt.Errorf("fund account %s: %v", &account.Address, err)
			}
		}
	}

	for _, fnCall := range config.FunctionCalls {
		if err = call(&vm.CallInfo{
			ContractAddress: &fnCall.ContractAddress,
			Selector:        &fnCall.EntryPointSelector,
			Calldata:        feltPointers(fnCall.Calldata),
			EntryPointType:  vm.External,
		}); err != nil {
			return nil, nil, fmt.Errorf("execute function call: %w", err)
		}
	}

	return genesisState.StateDiffAndClasses()
}

// Apply writes the genesis state into state.
func Apply(config *GenesisConfig, engine *native.Engine, blockCtx *vm.BlockContext, state core.StateReadWriter) error {
	diff, classes, err := GenesisStateDiff(config, engine, blockCtx, state)
	if err != nil {
		return err
	}
	return core.ApplyStateDiff(state, diff, classes)
}

func feltPointers(felts []felt.Felt) []*felt.Felt {
	pointers := make([]*felt.Felt, len(felts))
	for idx := range felts {
		pointers[idx] = &felts[idx]
	}
	return pointers
}

func sortedAddresses(contracts map[felt.Felt]GenesisContractData) []felt.Felt {
	addresses := make([]felt.Felt, 0, len(contracts))
	for address := range contracts {
		addresses = append(addresses, address)
	}
	slices.SortFunc(addresses, func(a, b felt.Felt) int { return a.Cmp(&b) })
	return addresses
}
