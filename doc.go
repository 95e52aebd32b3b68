/*
Package clip defines the pull contract of a clip's real-time supply chain.

Concept

A clip is rendered by a chain of suppliers. The real-time driver pulls the
outermost supplier once per audio block; each stage forwards a transformed
request to the supplier it wraps and post-processes the response:

    Source - the origin of material (audio file, MIDI sequence, recording);
    Section - a sub-range of material;
    Looper - repetition of material;
    AdHocFader - short fades at arbitrary frames;
    Resampler - frame rate and tempo conversion.

Every stage implements AudioSupplier and MidiSupplier. A request carries the
start frame within the innermost material, which may be negative during
count-in. A response tells how many frames of material were consumed and
whether the end of material was reached:

    PleaseContinue - destination was filled, more material follows;
    ReachedEnd - material ended, the number of written frames is reported.

Real-time safety

SupplyAudio and SupplyMidi must not allocate or block. Requests are passed
by value, buffers are views over memory allocated before playback and MIDI
events are written into lists with fixed capacity. Configuration of stages
happens between calls, see package mutable.

Frames

Frame positions are signed, zero is the start of material. MIDI material is
measured in virtual frames of MidiFrameRate so that tempo handling is the same
for audio and MIDI.
*/
package clip
