package mnemonic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	sentence, err := Generate()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(sentence), 24)
	assert.NoError(t, Verify(sentence))

	shortSentence, err := Generate(128)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(shortSentence), 12)

	_, err = Generate(100)
	assert.ErrorIs(t, err, ErrInvalidEntropySize)
}

func TestVerify(t *testing.T) {
	assert.ErrorIs(t, Verify("definitely not a mnemonic"), ErrInvalidMnemonic)
	assert.NoError(t, Verify("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"))
}

func TestSeedIsDeterministic(t *testing.T) {
	sentence, err := Generate()
	require.NoError(t, err)

	firstSeed, err := Seed(sentence)
	require.NoError(t, err)
	secondSeed, err := Seed(sentence)
	require.NoError(t, err)

	assert.Len(t, firstSeed, 32)
	assert.Equal(t, firstSeed, secondSeed)

	otherSentence, err := Generate()
	require.NoError(t, err)
	otherSeed, err := Seed(otherSentence)
	require.NoError(t, err)
	assert.NotEqual(t, firstSeed, otherSeed)

	_, err = Seed("definitely not a mnemonic")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}
