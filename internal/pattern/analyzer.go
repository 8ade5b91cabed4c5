// Package pattern predicts missing reference and counterpart accounts of bank
// transactions from an administration's booking history.
package pattern

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/jbrukh/bayesian"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

const (
	SideDebet  = "debet"  // bank account debited, money in
	SideCredit = "credit" // bank account credited, money out

	RefGiven     = "given"
	RefSubstring = "substring"
	RefFuzzy     = "fuzzy"
	RefBayesian  = "bayesian"
	MethodNone   = "none"

	AccountPattern  = "pattern"
	AccountFallback = "fallback"

	minReferenceLen  = 3
	minFuzzyLen      = 4
	fuzzyDrift       = 0.2
	bayesianMinProb  = 0.6
	fallbackMinShare = 0.5
)

type Prediction struct {
	Reference       string  `json:"reference"`
	Debet           string  `json:"debet"`
	Credit          string  `json:"credit"`
	Confidence      float64 `json:"confidence"`
	ReferenceMethod string  `json:"reference_method"`
	AccountMethod   string  `json:"account_method"`
}

type Stats struct {
	Transactions int  `json:"transactions"`
	Patterns     int  `json:"patterns"`
	References   int  `json:"references"`
	Bayesian     bool `json:"bayesian"`
}

type refKey struct {
	bank, side, reference string
}

type sideKey struct {
	bank, side string
}

type knownRef struct {
	name  string
	lower string
	freq  int
}

// Analyzer holds counterpart frequencies learned from historical
// transactions. It is read-only after Train.
type Analyzer struct {
	banks  map[string]bool
	byRef  map[refKey]map[string]int
	bySide map[sideKey]map[string]int
	refs   []knownRef
	cl     *bayesian.Classifier
	stats  Stats
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		banks:  map[string]bool{},
		byRef:  map[refKey]map[string]int{},
		bySide: map[sideKey]map[string]int{},
	}
}

// bankSide returns the bank account of tx and which side it is on.
func (a *Analyzer) bankSide(tx models.Transaction) (bank, side string, ok bool) {
	switch {
	case a.banks[tx.Debet]:
		return tx.Debet, SideDebet, true
	case a.banks[tx.Credit]:
		return tx.Credit, SideCredit, true
	}
	return "", "", false
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func count(m map[string]int, key string) {
	m[key]++
}

// Train replaces the learned patterns with those of history. Only
// transactions touching one of bankAccounts are used.
func (a *Analyzer) Train(history []models.Transaction, bankAccounts []string) {
	*a = *NewAnalyzer()
	for _, b := range bankAccounts {
		a.banks[b] = true
	}

	refFreq := map[string]int{}
	docs := map[string][][]string{}

	for _, tx := range history {
		bank, side, ok := a.bankSide(tx)
		if !ok {
			continue
		}
		counterpart := tx.Credit
		if side == SideCredit {
			counterpart = tx.Debet
		}
		if counterpart == "" {
			continue
		}
		a.stats.Transactions++

		rk := refKey{bank, side, tx.ReferenceNumber}
		if a.byRef[rk] == nil {
			a.byRef[rk] = map[string]int{}
		}
		count(a.byRef[rk], counterpart)

		sk := sideKey{bank, side}
		if a.bySide[sk] == nil {
			a.bySide[sk] = map[string]int{}
		}
		count(a.bySide[sk], counterpart)

		if ref := strings.TrimSpace(tx.ReferenceNumber); len(ref) >= minReferenceLen {
			refFreq[ref]++
			docs[ref] = append(docs[ref], tokens(tx.TransactionDescription))
		}
	}

	for name, freq := range refFreq {
		a.refs = append(a.refs, knownRef{name: name, lower: strings.ToLower(name), freq: freq})
	}
	// longest first, then most frequent, then by name for stable output
	slices.SortFunc(a.refs, func(x, y knownRef) int {
		if c := cmp.Compare(len(y.lower), len(x.lower)); c != 0 {
			return c
		}
		if c := cmp.Compare(y.freq, x.freq); c != 0 {
			return c
		}
		return strings.Compare(x.name, y.name)
	})

	a.stats.Patterns = len(a.byRef)
	a.stats.References = len(a.refs)

	if len(a.refs) >= 2 {
		classes := make([]bayesian.Class, 0, len(a.refs))
		for _, r := range a.refs {
			classes = append(classes, bayesian.Class(r.name))
		}
		cl := bayesian.NewClassifierTfIdf(classes...)
		learned := 0
		for ref, list := range docs {
			for _, words := range list {
				if len(words) > 0 {
					cl.Learn(words, bayesian.Class(ref))
					learned++
				}
			}
		}
		if learned > 0 {
			cl.ConvertTermsFreqToTfIdf()
			a.cl = cl
			a.stats.Bayesian = true
		}
	}
}

func (a *Analyzer) Stats() Stats {
	return a.stats
}

func (a *Analyzer) referenceBySubstring(desc string) (string, bool) {
	lower := strings.ToLower(desc)
	for _, r := range a.refs {
		if strings.Contains(lower, r.lower) {
			return r.name, true
		}
	}
	return "", false
}

func (a *Analyzer) referenceByDistance(desc string) (string, bool) {
	best, bestDist, bestFreq := "", math.MaxInt, 0
	for _, tok := range tokens(desc) {
		if len(tok) < minFuzzyLen {
			continue
		}
		for _, r := range a.refs {
			if len(r.lower) < minFuzzyLen {
				continue
			}
			allowed := int(fuzzyDrift * float64(len(r.lower)))
			if allowed == 0 {
				continue
			}
			d := levenshtein.DistanceForStrings([]rune(tok), []rune(r.lower), levenshtein.DefaultOptions)
			if d > allowed {
				continue
			}
			if d < bestDist || (d == bestDist && r.freq > bestFreq) {
				best, bestDist, bestFreq = r.name, d, r.freq
			}
		}
	}
	return best, best != ""
}

func (a *Analyzer) referenceByClassifier(desc string) (string, bool) {
	if a.cl == nil {
		return "", false
	}
	words := tokens(desc)
	if len(words) == 0 {
		return "", false
	}
	scores, inx, strict := a.cl.LogScores(words)
	if !strict {
		return "", false
	}
	// normalise log scores into a probability of the winning class
	maxScore := scores[inx]
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - maxScore)
	}
	if 1/sum < bayesianMinProb {
		return "", false
	}
	return string(a.cl.Classes[inx]), true
}

func (a *Analyzer) predictReference(tx models.Transaction) (string, string) {
	if tx.ReferenceNumber != "" {
		return tx.ReferenceNumber, RefGiven
	}
	if ref, ok := a.referenceBySubstring(tx.TransactionDescription); ok {
		return ref, RefSubstring
	}
	if ref, ok := a.referenceByDistance(tx.TransactionDescription); ok {
		return ref, RefFuzzy
	}
	if ref, ok := a.referenceByClassifier(tx.TransactionDescription); ok {
		return ref, RefBayesian
	}
	return "", MethodNone
}

// mostFrequent returns the top key and its share of all observations.
// Ties go to the smallest key.
func mostFrequent(m map[string]int) (string, int, int) {
	best, bestN, total := "", 0, 0
	for k, n := range m {
		total += n
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best, bestN, total
}

// Predict proposes the reference and the missing counterpart of tx. It never
// changes tx.
func (a *Analyzer) Predict(tx models.Transaction) Prediction {
	p := Prediction{Debet: tx.Debet, Credit: tx.Credit, AccountMethod: MethodNone}
	p.Reference, p.ReferenceMethod = a.predictReference(tx)

	if (tx.Debet == "") == (tx.Credit == "") {
		return p
	}
	bank, side, ok := a.bankSide(tx)
	if !ok {
		return p
	}

	var counterpart string
	if m := a.byRef[refKey{bank, side, p.Reference}]; len(m) > 0 {
		best, n, total := mostFrequent(m)
		counterpart, p.Confidence, p.AccountMethod = best, float64(n)/float64(total), AccountPattern
	} else if m := a.bySide[sideKey{bank, side}]; len(m) > 0 {
		best, n, total := mostFrequent(m)
		share := float64(n) / float64(total)
		if share >= fallbackMinShare {
			counterpart, p.Confidence, p.AccountMethod = best, share, AccountFallback
		}
	}

	if counterpart != "" {
		if side == SideDebet {
			p.Credit = counterpart
		} else {
			p.Debet = counterpart
		}
	}
	return p
}

// Apply fills empty Reference, Debet and Credit fields of txs in place and
// returns the prediction of each row.
func (a *Analyzer) Apply(txs []models.Transaction) []Prediction {
	preds := make([]Prediction, len(txs))
	for i := range txs {
		p := a.Predict(txs[i])
		if txs[i].ReferenceNumber == "" {
			txs[i].ReferenceNumber = p.Reference
		}
		if txs[i].Debet == "" {
			txs[i].Debet = p.Debet
		}
		if txs[i].Credit == "" {
			txs[i].Credit = p.Credit
		}
		preds[i] = p
	}
	return preds
}
