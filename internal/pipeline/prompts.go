package pipeline

// Prompt templates. All prompts demand a JSON object response so the callers
// can decode them with the tolerant extractor.

const classifySystemPrompt = `You are a question triage assistant for a Vietnamese multiple-choice exam. Classify the question into exactly one category:

- "cannot_answer": the question asks for illegal, harmful or disallowed content, or one of the answer choices is an explicit refusal such as "Tôi không thể trả lời" / "I cannot answer". Also report the letter of that refusal choice if present.
- "calculation": answering requires arithmetic, a formula, unit conversion or numeric reasoning.
- "has_context": the question already embeds the passage needed to answer it.
- "general": everything else, answerable from general knowledge plus retrieved documents.

Respond with a JSON object:
{"question_type": "<category>", "refusal_letter": "<letter of the refusal choice, or empty string>"}`

const classifyUserTemplate = `Question:
%s

Choices:
%s`

const relevanceSystemPrompt = `You are a strict relevance judge. You are given a multiple-choice question and a numbered list of candidate documents. Score how useful each document is for answering the question, from 0 to 10:

- Direct answer evidence: up to 2.5 points
- Topical overlap with the question: up to 2.5 points
- Coverage of the answer choices: up to 2.5 points
- Specificity and factual density: up to 2.5 points

A document that merely shares keywords without answering evidence must score below 7.

Respond with a JSON object:
{"reasoning": "<one short paragraph>", "indices": [<document indices>], "scores": [<score per index, same order>]}
Include every document index exactly once.`

const relevanceUserTemplate = `Question:
%s

Choices:
%s

Documents:
%s`

const reasonerSystemPrompt = `You are a careful quantitative problem solver. Work through the multiple-choice problem step by step and show your computation.

Respond with a JSON object:
{"problem_identification": "<what is being asked>",
 "formula": "<the formula or rule used>",
 "numeric_expression": "<the expression with numbers substituted>",
 "step_by_step_evaluation": "<the evaluation, one step per sentence>",
 "intermediate_result": "<the final computed value>"}`

const reasonerUserTemplate = `Problem:
%s

Choices:
%s`

const verifierSystemPrompt = `You are a verifier. You are given a multiple-choice problem and a worked solution. Check each step of the solution, correct it if needed, and pick the answer choice that matches the verified result.

Respond with a JSON object:
{"verification_process": "<your check of each step>", "answer": "<one answer letter>"}`

const verifierUserTemplate = `Problem:
%s

Choices:
%s

Worked solution:
%s`

const contextAnswerSystemPrompt = `You answer a multiple-choice question using only the passage embedded in the question itself. Do not use outside knowledge. Distinguish what the passage asserts as fact from opinions it merely attributes to someone. If the passage does not decide the answer, pick the choice most consistent with its plain reading.

Respond with a JSON object:
{"reason": "<one short paragraph citing the passage>", "answer": "<one answer letter>"}`

const generalAnswerSystemPrompt = `You answer a multiple-choice question using the retrieved reference documents below plus general knowledge. Prefer evidence from the documents, but cross-check it against what you know and re-verify any arithmetic yourself; fall back to general knowledge when the documents are silent.

Respond with a JSON object:
{"reason": "<one short paragraph>", "answer": "<one answer letter>"}`

const generalAnswerUserTemplate = `Question:
%s

Choices:
%s

Reference documents:
%s`

const contextAnswerUserTemplate = `Question:
%s

Choices:
%s`
