/*
Package markov learns a character-level statistical model of hierarchical
dotted names (for example DNS hostnames) and uses it to synthesize new names
or to score how typical an existing name is.

A model is built in three steps. A Histogram collects raw counts in a single
pass over a corpus, Build normalizes those counts into probability
distributions, and Model.Extend adds an "Others" bucket to every distribution
so that sampling can reach symbols never observed during training. The
resulting Model is immutable and may be shared by any number of Generators
and scorers.

Labels are indexed by level, counted from the rightmost label of a name and
clipped to MaxLevels. Each level has its own word-length distribution,
first-character distribution and bigram transition table.

Models are exchanged as JSON documents with a "dist" and a "trans" section;
see Document for the exact layout.
*/
package markov
