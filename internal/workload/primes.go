// Package workload implements the synthetic load generators every tier exposes.
// Generators are plain functions: they compute, time themselves, and return a
// summary while discarding whatever they built.
package workload

import "time"

// PrimeResult summarises a prime enumeration.
type PrimeResult struct {
	Limit       int
	PrimesFound int
	Duration    time.Duration
}

// CountPrimes counts the primes in [2, limit] by trial division.
func CountPrimes(limit int) PrimeResult {
	start := time.Now()

	primes := make([]int, 0)
	for n := 2; n <= limit; n++ {
		if IsPrime(n) {
			primes = append(primes, n)
		}
	}

	return PrimeResult{
		Limit:       limit,
		PrimesFound: len(primes),
		Duration:    time.Since(start),
	}
}

// IsPrime reports whether n is prime using odd trial divisors up to sqrt(n).
func IsPrime(n int) bool {
	if n <= 1 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
